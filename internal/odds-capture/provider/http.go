package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// defaultClient tem timeout menor que o start-to-close das activities (10s)
var defaultClient = &http.Client{Timeout: 8 * time.Second}

// getJSON faz GET e decodifica o corpo em out.
// Falha de rede, 429 e 5xx viram ErrTransientProvider; 4xx é erro definitivo da chamada.
func getJSON(ctx context.Context, c *http.Client, url, requestID string, out any) error {
	if c == nil {
		c = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: GET %s: %v", snapshots.ErrTransientProvider, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: GET %s: %s", snapshots.ErrTransientProvider, url, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
