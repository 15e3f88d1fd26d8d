package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/quoriumlabs/grainfsm/adminpb"
)

// ErrUnsupportedNetwork is returned when a server address names a
// scheme other than tcp or unix.
var ErrUnsupportedNetwork = errors.New("unsupported network scheme")

// dialAdmin connects to an admin gRPC surface at serverAddr (either
// "tcp://host:port", "unix:///path/to/socket", or a bare "host:port")
// and returns a client over it.
func dialAdmin(serverAddr string) (adminpb.AdminServiceClient, *grpc.ClientConn, error) {
	network, address, err := parseServerAddr(serverAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server address: %w", err)
	}

	var conn *grpc.ClientConn
	switch network {
	case "tcp":
		conn, err = grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	case "unix":
		conn, err = grpc.NewClient(
			"unix:"+address,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithContextDialer(func(_ context.Context, addr string) (net.Conn, error) {
				socketAddr := strings.TrimPrefix(addr, "unix:")
				return net.Dial("unix", socketAddr)
			}),
		)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("dialing admin server: %w", err)
	}

	return adminpb.NewAdminServiceClient(conn), conn, nil
}

// parseServerAddr parses a server address string into a network
// ("tcp" or "unix") and address, accepting both URL-scheme form and a
// bare "host:port" (assumed tcp).
func parseServerAddr(serverAddr string) (network string, address string, err error) {
	if serverAddr == "" {
		return "", "", fmt.Errorf("server address cannot be empty")
	}

	if strings.Contains(serverAddr, "://") {
		u, err := url.Parse(serverAddr)
		if err != nil {
			return "", "", fmt.Errorf("invalid URL format: %w", err)
		}
		switch u.Scheme {
		case "tcp":
			if u.Host == "" {
				return "", "", fmt.Errorf("tcp scheme requires host:port after tcp://")
			}
			return "tcp", u.Host, nil
		case "unix":
			if u.Path == "" {
				return "", "", fmt.Errorf("unix scheme requires path after unix://")
			}
			return "unix", u.Path, nil
		default:
			return "", "", fmt.Errorf("%w: %s", ErrUnsupportedNetwork, u.Scheme)
		}
	}

	return "tcp", serverAddr, nil
}
