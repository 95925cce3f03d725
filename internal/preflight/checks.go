package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"osmautolink/internal/config"
	"osmautolink/internal/services"
	"osmautolink/internal/services/osmapi"
)

// CheckOSM verifies the API token by fetching the account it belongs to.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckOSM(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenStreetMap API"
	if strings.TrimSpace(cfg.OSM.Token) == "" {
		if cfg.OSM.DryRun {
			return Result{Name: name, Passed: true, Detail: "token missing (dry run, uploads disabled)"}
		}
		return Result{Name: name, Detail: "token missing (set osm.token or OSM_TOKEN)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := osmapi.NewClient(osmapi.Config{
		BaseURL: cfg.OSM.APIURL,
		Token:   cfg.OSM.Token,
	}, osmapi.WithRetryPolicy(services.NoRetry()))

	user, err := client.UserDetails(checkCtx)
	if err != nil {
		if errors.Is(err, services.ErrConfiguration) {
			return Result{Name: name, Detail: "auth failed (invalid or expired token)"}
		}
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("authenticated as %s", user.DisplayName)}
}

// CheckLinkFinder verifies that the selected backend has credentials.
func CheckLinkFinder(cfg *config.Config) Result {
	const name = "Link finder"
	if err := cfg.RequireLLM(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	model := cfg.LLM.Model
	if cfg.LLM.Provider == config.ProviderGemini {
		model = cfg.LLM.GeminiModel
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s/%s configured", cfg.LLM.Provider, model)}
}

// CheckNominatim verifies that the Nominatim status endpoint answers.
func CheckNominatim(ctx context.Context, baseURL string) Result {
	const name = "Nominatim"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/status", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	req.Header.Set("User-Agent", services.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("status check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeError produces a human-readable summary for failed remote checks.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (API unreachable)"
	}
	return err.Error()
}
