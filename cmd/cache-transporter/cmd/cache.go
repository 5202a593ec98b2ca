package cmd

import (
	"github.com/oneconcern/cachetransporter/pkg/core"
	"github.com/oneconcern/cachetransporter/pkg/transport"
	"github.com/spf13/afero"
)

// newCache builds the cache operations from the loaded configuration.
// The server client is only needed by the upload and download steps.
func newCache(withClient bool) (*core.Cache, error) {
	opts := []core.Option{
		core.Fs(afero.NewOsFs()),
		core.TempDir(cfg.Temp),
		core.Logger(logger),
	}
	if withClient {
		if err := cfg.RequireURI(); err != nil {
			return nil, err
		}
		client, err := transport.NewClient(cfg.URI,
			transport.WithTimeout(cfg.Timeout),
			transport.WithDialTimeout(cfg.DialTimeout),
			transport.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, core.Client(client))
	}
	return core.New(opts...), nil
}
