// ABOUTME: Connection check for an OpenAI-compatible embeddings endpoint.
// ABOUTME: Embeds one probe text with the entered credentials and reports the vector size.
package tui

import (
	"context"
	"strings"

	"github.com/2389-research/beatalign/internal/embeddings"
)

// ValidateConnection embeds a probe text against apiURL with the given key and
// model. The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, apiURL, apiKey, model string) (int, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	return embeddings.ValidateRemote(ctx, apiURL, apiKey, model)
}
