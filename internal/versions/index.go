package versions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/caedis/fezmod-installer/internal/failure"
)

// Index reads releases from a YAML document at a URL or local path:
//
//	stable:
//	  - label: "0.3.1"
//	    url: https://example.com/FEZMod-0.3.1.zip
//	nightly:
//	  - label: "152"
//	    url: https://example.com/devbuild-152.zip
//
// Entries are kept in document order, which should be newest first.
type Index struct {
	Location string
	Client   *http.Client
	Fs       afero.Fs
}

type indexDoc struct {
	Stable  []Spec `yaml:"stable"`
	Nightly []Spec `yaml:"nightly"`
}

func (ix *Index) Channels(ctx context.Context) (map[Channel][]Spec, error) {
	data, err := ix.read(ctx)
	if err != nil {
		return nil, err
	}
	return ParseIndex(data)
}

// ParseIndex decodes an index document.
func ParseIndex(data []byte) (map[Channel][]Spec, error) {
	var doc indexDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing version index: %w", err)
	}
	return map[Channel][]Spec{
		Stable:  clean(doc.Stable),
		Nightly: clean(doc.Nightly),
	}, nil
}

func clean(specs []Spec) []Spec {
	var out []Spec
	for _, s := range specs {
		s.Label = strings.TrimSpace(s.Label)
		s.URL = strings.TrimSpace(s.URL)
		if s.Label == "" || s.URL == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (ix *Index) read(ctx context.Context) ([]byte, error) {
	loc := strings.TrimSpace(ix.Location)
	if loc == "" {
		return nil, fmt.Errorf("no version index location configured")
	}
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		fsys := ix.Fs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		data, err := afero.ReadFile(fsys, loc)
		if err != nil {
			return nil, fmt.Errorf("reading version index: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	client := ix.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "fetching version index", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.New(failure.Network, "fetching version index: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "reading version index", err)
	}
	return data, nil
}
