package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"postline/internal/config"
	"postline/internal/deps"
	"postline/internal/session"
)

const ntfyDefaultServer = "https://ntfy.sh"

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

// CheckSession loads the cookie jar and reports its earliest expiry.
func CheckSession(ctx context.Context, cfg *config.Config) Result {
	const name = "Session"
	loader := session.NewFileLoader(cfg)
	handle, err := loader.Load(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeSessionError(err)}
	}
	if !loader.Verify(ctx, handle) {
		return Result{Name: name, Detail: "session cookies expired or incomplete"}
	}
	if exp := handle.ExpiresAt(); !exp.IsZero() {
		remaining := time.Until(exp).Round(time.Hour)
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d cookies (expires in %s)", len(handle.Cookies), remaining)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d cookies", len(handle.Cookies))}
}

// CheckPublisher verifies the publisher command resolves on PATH.
func CheckPublisher(cfg *config.Config) Result {
	const name = "Publisher"
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) == 0 {
		return Result{Name: name, Detail: "no publisher command configured"}
	}
	status := statuses[0]
	if !status.Available {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", status.Command, status.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: status.Path}
}

// CheckNtfy verifies the ntfy server behind topic answers its health endpoint.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	base, err := ntfyServer(topic)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1/health", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "server rejected request (access token required)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

// ntfyServer extracts the server root from a bare topic or a topic URL.
func ntfyServer(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("missing topic")
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return ntfyDefaultServer, nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid topic url %q", topic)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

func summarizeSessionError(err error) string {
	if errors.Is(err, os.ErrNotExist) {
		return "cookie file missing (export cookies from a logged-in browser)"
	}
	return err.Error()
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (server unreachable)"
	}
	return fmt.Sprintf("health check failed (%v)", err)
}
