package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/vaultlink/vaultlink/internal/common"
	"github.com/vaultlink/vaultlink/internal/eventhub"
	"github.com/vaultlink/vaultlink/internal/logging"
)

// PresencePath is the well-known path answered by advertising devices.
const PresencePath = "/presence"

// Presence is the payload returned for a presence query.
type Presence struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
	Version      string            `json:"version"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Identity describes this device as advertised to the network.
type Identity struct {
	ID           string
	Name         string
	Version      string
	Capabilities map[string]string
}

// presenceServer answers presence queries and serves the event feed while
// advertising is active.
type presenceServer struct {
	identity Identity
	log      logging.Logger
	srv      *http.Server
	listener net.Listener
}

func newPresenceServer(identity Identity, hub *eventhub.Hub, log logging.Logger) *presenceServer {
	ps := &presenceServer{identity: identity, log: log}

	r := mux.NewRouter()
	r.HandleFunc(PresencePath, ps.handlePresence).Methods(http.MethodGet)
	r.HandleFunc("/events", eventhub.ServeWS(hub, log)).Methods(http.MethodGet)

	ps.srv = &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	return ps
}

// start binds the listener. Port 0 picks an ephemeral port; the bound port
// is available from port() afterwards. Bind failure is fatal to advertising.
func (ps *presenceServer) start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("%w: bind failed: %v", common.ErrDiscovery, err)
	}
	ps.listener = ln

	go func() {
		if err := ps.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			ps.log.Error(context.Background(), "presence server stopped", "error", err)
		}
	}()
	return nil
}

func (ps *presenceServer) port() int {
	if ps.listener == nil {
		return 0
	}
	return ps.listener.Addr().(*net.TCPAddr).Port
}

func (ps *presenceServer) stop(ctx context.Context) {
	_ = ps.srv.Shutdown(ctx)
}

func (ps *presenceServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Presence{
		ID:           ps.identity.ID,
		Name:         ps.identity.Name,
		Capabilities: ps.identity.Capabilities,
		Version:      ps.identity.Version,
		Timestamp:    time.Now().UTC(),
	})
}
