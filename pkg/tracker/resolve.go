package tracker

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

var (
	ErrTargetNotFound  = errors.New("target user not found")
	ErrLogChatNotFound = errors.New("log chat not found")
)

// matchPeer scans peers for spec. Numeric ids win over usernames, usernames
// over exact first names or titles, so a display name never shadows a handle.
// A numeric id names one peer kind in Bot API notation: positive for users,
// negative for basic groups, -100 prefixed for channels.
func matchPeer(peers []Peer, spec string, usersOnly bool) (Peer, bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Peer{}, false
	}
	candidates := peers
	if usersOnly {
		candidates = make([]Peer, 0, len(peers))
		for _, p := range peers {
			if p.Kind == PeerUser {
				candidates = append(candidates, p)
			}
		}
	}

	if id, err := strconv.ParseInt(spec, 10, 64); err == nil {
		kind, raw := BotAPIPeer(id)
		for _, p := range candidates {
			if p.Kind == kind && p.ID == raw {
				return p, true
			}
		}
		return Peer{}, false
	}

	username := strings.TrimPrefix(spec, "@")
	for _, p := range candidates {
		if p.Username != "" && strings.EqualFold(p.Username, username) {
			return p, true
		}
	}
	for _, p := range candidates {
		if (p.FirstName != "" && p.FirstName == spec) || (p.Title != "" && p.Title == spec) {
			return p, true
		}
	}
	return Peer{}, false
}

// ResolveTarget finds the user to watch, scanning dialogs first and looking
// the specifier up directly when the scan has no match.
func (t *Tracker) ResolveTarget(ctx context.Context, spec string, dialogs []Peer) (Peer, error) {
	if p, ok := matchPeer(dialogs, spec, true); ok {
		return p, nil
	}

	p, err := t.client.LookupPeer(ctx, spec)
	if err != nil {
		return Peer{}, errors.Wrapf(ErrTargetNotFound, "%q: %v", spec, err)
	}
	if p.Kind != PeerUser {
		return Peer{}, errors.Wrapf(ErrTargetNotFound, "%q is a %s, not a user", spec, p.Kind)
	}
	return p, nil
}

// ResolveLogChat finds the chat that receives every entry. When nothing
// matches and unresolved chats are allowed, a numeric specifier is used as
// is and only a warning is emitted.
func (t *Tracker) ResolveLogChat(ctx context.Context, spec string, dialogs []Peer) (Peer, error) {
	if isSelfMarker(spec) {
		return Peer{Kind: PeerSelf}, nil
	}
	if p, ok := matchPeer(dialogs, spec, false); ok {
		return p, nil
	}

	p, lookupErr := t.client.LookupPeer(ctx, spec)
	if lookupErr == nil {
		return p, nil
	}

	if t.cfg.AllowUnresolvedLogChat {
		if id, err := strconv.ParseInt(strings.TrimSpace(spec), 10, 64); err == nil {
			kind, raw := BotAPIPeer(id)
			t.logger.Warn("Log chat not resolved, sending to raw id",
				zap.String("log_chat", spec), zap.Stringer("kind", kind), zap.Error(lookupErr))
			t.report.Warn("Could not verify log chat '%s', continuing anyway", spec)
			return Peer{Kind: kind, ID: raw}, nil
		}
	}
	return Peer{}, errors.Wrapf(ErrLogChatNotFound, "%q: %v", spec, lookupErr)
}
