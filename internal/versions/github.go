package versions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/semver"
)

// DefaultRepo hosts the FEZMod releases.
const DefaultRepo = "0x0ade/FEZMod"

const releasesPerPage = 25

// Release is the subset of GitHub's release API response we need.
type Release struct {
	TagName    string         `json:"tag_name"`
	Prerelease bool           `json:"prerelease"`
	Draft      bool           `json:"draft"`
	Assets     []ReleaseAsset `json:"assets"`
}

// ReleaseAsset represents a downloadable file attached to a GitHub release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHub lists releases of a GitHub repository. Full releases form the stable
// channel and prereleases the nightly channel.
type GitHub struct {
	Repo   string
	Token  string
	Client *http.Client
}

func (g *GitHub) Channels(ctx context.Context) (map[Channel][]Spec, error) {
	repo := g.Repo
	if repo == "" {
		repo = DefaultRepo
	}
	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/releases?per_page=%d", repo, releasesPerPage)
	releases, err := g.fetchReleases(ctx, apiURL)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "listing releases of "+repo, err)
	}
	return groupReleases(releases), nil
}

func (g *GitHub) fetchReleases(ctx context.Context, apiURL string) ([]Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.Token != "" {
		req.Header.Set("Authorization", "token "+g.Token)
	}

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decoding releases: %w", err)
	}
	return releases, nil
}

// PickZip selects the release zip from a list of assets: a .zip whose name
// contains the version, else the only .zip.
func PickZip(assets []ReleaseAsset, version string) *ReleaseAsset {
	version = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(version), "v"))

	var zips []*ReleaseAsset
	for i, asset := range assets {
		name := strings.TrimSpace(asset.Name)
		if !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		if version != "" && strings.Contains(strings.ToLower(name), version) {
			return &assets[i]
		}
		zips = append(zips, &assets[i])
	}

	// Only fall back if there's exactly one zip (no ambiguity)
	if len(zips) == 1 {
		return zips[0]
	}
	return nil
}

func groupReleases(releases []Release) map[Channel][]Spec {
	out := map[Channel][]Spec{Stable: nil, Nightly: nil}
	for _, rel := range releases {
		tag := strings.TrimSpace(rel.TagName)
		if tag == "" || rel.Draft {
			continue
		}
		asset := PickZip(rel.Assets, tag)
		if asset == nil || strings.TrimSpace(asset.BrowserDownloadURL) == "" {
			continue
		}
		ch := Stable
		if rel.Prerelease {
			ch = Nightly
		}
		out[ch] = append(out[ch], Spec{
			Label: strings.TrimPrefix(tag, "v"),
			URL:   strings.TrimSpace(asset.BrowserDownloadURL),
		})
	}
	for _, specs := range out {
		sort.SliceStable(specs, func(i, j int) bool {
			return newer(specs[i].Label, specs[j].Label)
		})
	}
	return out
}

// newer orders labels that parse as versions; anything else keeps API order.
func newer(a, b string) bool {
	av, aErr := semver.Parse(a)
	bv, bErr := semver.Parse(b)
	if aErr != nil || bErr != nil {
		return false
	}
	return bv.Less(av)
}
