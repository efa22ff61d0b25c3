package rpc

import (
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/luxfi/hybridvm/actor"
	"github.com/luxfi/hybridvm/app"
	"github.com/luxfi/hybridvm/payload"
)

// NewServer builds a gethrpc.Server with the eth, engine, and mv namespaces
// registered over reader/queue/registry, ready to be mounted behind
// gethrpc.NewHTTPHandler or served directly (the Server itself implements
// http.Handler).
func NewServer(reader *app.Reader, queue chan<- actor.Command, registry *payload.Registry) (*gethrpc.Server, error) {
	server := gethrpc.NewServer()
	if err := server.RegisterName("eth", NewEthService(reader, queue)); err != nil {
		return nil, err
	}
	if err := server.RegisterName("engine", NewEngineService(queue, registry, reader)); err != nil {
		return nil, err
	}
	if err := server.RegisterName("mv", NewMoveService(reader)); err != nil {
		return nil, err
	}
	if err := server.RegisterName("web3", web3Service{reader: reader}); err != nil {
		return nil, err
	}
	return server, nil
}

// web3Service implements the web3_* namespace (§6: web3_clientVersion).
type web3Service struct{ reader *app.Reader }

// ClientVersion implements web3_clientVersion.
func (s web3Service) ClientVersion() string { return s.reader.ClientVersion() }
