package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/humaclient"
)

// ClientPackage is the package name of the generated Go client.
const ClientPackage = "iftarclient"

// GenerateClient writes the Go client SDK for the REST API into dir. The
// map and admin streams are browser-only and stay out of the client.
func (s *Server) GenerateClient(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	restAPI := s.clientAPI()

	// humaclient writes on registration when GENERATE_CLIENT is set
	if err := os.Setenv("GENERATE_CLIENT", "1"); err != nil {
		return err
	}
	defer os.Unsetenv("GENERATE_CLIENT")
	humaclient.RegisterWithOptions(restAPI, humaclient.Options{
		PackageName:     ClientPackage,
		OutputDirectory: dir,
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no client files written to %s", dir)
	}
	return nil
}

// clientAPI is the REST surface alone, on a throwaway mux.
func (s *Server) clientAPI() huma.API {
	restAPI := humago.New(http.NewServeMux(), s.humaConfig())
	s.restRoutes(restAPI)
	return restAPI
}
