package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subtrans/internal/config"
	"subtrans/internal/objectstore"
	"subtrans/internal/services"
	"subtrans/internal/services/llm"
)

// healthTimeout bounds the single-attempt service probe.
const healthTimeout = 30 * time.Second

// CheckAPIKey reports whether a credential is configured.
func CheckAPIKey(cfg *config.Config) Result {
	const name = "API key"
	if err := cfg.RequireAPIKey(); err != nil {
		return Result{Name: name, Detail: "missing (set SUBTRANS_API_KEY or llm.api_key)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckLLM verifies that the translation service is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg *config.Config) Result {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.Translation.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", cfg.Translation.Model)}
}

// CheckObjectStore verifies the output bucket is reachable with the configured
// credentials. Open creates the bucket when storage.create_bucket is set.
func CheckObjectStore(ctx context.Context, name string, cfg *config.Config) Result {
	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if _, err := objectstore.Open(checkCtx, objectstore.FromStorage(cfg.Storage)); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s reachable at %s", cfg.Storage.Bucket, cfg.Storage.Endpoint)}
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

// CheckCreatableDirectory passes when path is a writable directory, or when
// it is missing but its nearest existing parent is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckBinary reports whether command resolves on PATH.
func CheckBinary(name, command, description string, optional bool) Result {
	cmd := strings.TrimSpace(command)
	result := Result{Name: name, Optional: optional}
	if cmd == "" {
		result.Detail = "command not configured"
		return result
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found (%s)", cmd, description)
		return result
	}
	result.Passed = true
	result.Detail = path
	return result
}

// summarizeLLMError produces a human-readable summary for health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && services.Classify(err) == services.KindFatal {
		return fmt.Sprintf("rejected with status %d (check api key, model and base_url)", statusErr.StatusCode)
	}
	return err.Error()
}
