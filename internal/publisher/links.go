package publisher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// LinkTarget describes the destination of an internal document link.
type LinkTarget struct {
	Title     string
	URL       string
	Published bool
}

// TargetResolver resolves internal link ids to their published location.
// A nil result means the id is unknown.
type TargetResolver interface {
	ResolveLink(ctx context.Context, id uuid.UUID) (*LinkTarget, error)
}

// TargetResolverFunc adapts a function to TargetResolver.
type TargetResolverFunc func(ctx context.Context, id uuid.UUID) (*LinkTarget, error)

func (f TargetResolverFunc) ResolveLink(ctx context.Context, id uuid.UUID) (*LinkTarget, error) {
	return f(ctx, id)
}

// Internal links use [[id]] or [[id|label]] with a document uuid as id.
var linkPattern = regexp.MustCompile(`\[\[([0-9a-fA-F-]{36})(?:\|([^\]\n]+))?\]\]`)

// RewriteLinks replaces internal document links with plain markdown links.
// Published targets become [label](url); unpublished or unknown targets
// degrade to their label as plain text so the published page never links to
// a page that does not exist.
func RewriteLinks(ctx context.Context, body string, resolver TargetResolver) (string, error) {
	if resolver == nil {
		return body, nil
	}

	var rewriteErr error
	out := linkPattern.ReplaceAllStringFunc(body, func(match string) string {
		if rewriteErr != nil {
			return match
		}
		groups := linkPattern.FindStringSubmatch(match)

		id, err := uuid.Parse(groups[1])
		if err != nil {
			return match
		}
		label := strings.TrimSpace(groups[2])

		target, err := resolver.ResolveLink(ctx, id)
		if err != nil {
			rewriteErr = fmt.Errorf("publisher: resolve link %s: %w", id, err)
			return match
		}
		if target == nil {
			if label != "" {
				return label
			}
			return match
		}
		if label == "" {
			label = target.Title
		}
		if label == "" {
			label = "untitled"
		}
		if !target.Published || target.URL == "" {
			return label
		}
		return fmt.Sprintf("[%s](%s)", label, target.URL)
	})
	if rewriteErr != nil {
		return "", rewriteErr
	}
	return out, nil
}
