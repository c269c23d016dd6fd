package client

import (
	"context"
	"fmt"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// DefaultMaxPages bounds how many pages a single list call follows.
const DefaultMaxPages = 100

// pageDecoder extracts the items and the next cursor from one page.
type pageDecoder[T any] func(*protocol.Response) ([]T, string, error)

// listAll fetches every page of method. A failing page fails the whole
// listing. The returned slice is never nil on success.
func listAll[T any](ctx context.Context, c *Client, method string, decode pageDecoder[T]) ([]T, error) {
	if err := c.requireReady(method); err != nil {
		return nil, err
	}

	all := []T{}
	seen := map[string]bool{}
	cursor := ""

	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, mcperrors.ProtocolError(fmt.Sprintf("%s returned more than %d pages", method, c.maxPages))
		}

		var params interface{}
		if cursor != "" {
			params = protocol.PaginatedParams{Cursor: cursor}
		}

		resp, err := c.call(ctx, method, params)
		if err != nil {
			return nil, err
		}
		items, next, err := decode(resp)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if next == "" {
			if page > 1 {
				c.logger.Debug("collected pages", logging.String("method", method), logging.Int("pages", page), logging.Int("items", len(all)))
			}
			return all, nil
		}
		if seen[next] {
			return nil, mcperrors.ProtocolError(fmt.Sprintf("%s repeated cursor %q", method, next))
		}
		seen[next] = true
		cursor = next
	}
}
