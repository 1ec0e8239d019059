package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/payrail/internal/domain"
	"github.com/trebuchet-org/payrail/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out   io.Writer
	color bool
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer, color bool) *NetworksRenderer {
	return &NetworksRenderer{
		out:   out,
		color: color,
	}
}

// RenderNetworksList renders the configured networks and their chain ids
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in payrail.toml [networks] or foundry.toml [rpc_endpoints]")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	for _, network := range result.Networks {
		if network.Error != nil {
			fmt.Fprintf(r.out, "  ❌ %s - Error: %v\n", network.Name, network.Error)
			continue
		}
		fmt.Fprintf(r.out, "  ✅ %s - Chain ID: %d (%s)", network.Name, network.ChainID, domain.ChainName(network.ChainID))
		if network.Relay {
			fmt.Fprint(r.out, gray.Sprint("  safe relay"))
		}
		fmt.Fprintln(r.out)
	}

	return nil
}
