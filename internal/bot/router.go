package bot

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/telegram"
)

type HandlerFunc func(ctx context.Context, cmd telegram.Command)

// Router maps command names to handlers. Names are matched without the
// leading slash and case-insensitively.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

func (r *Router) Handle(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[normalize(name)] = h
}

// Dispatch runs the handler registered for cmd.Name on the calling
// goroutine. It reports false when no handler matches.
func (r *Router) Dispatch(ctx context.Context, cmd telegram.Command) bool {
	r.mu.RLock()
	h, ok := r.handlers[normalize(cmd.Name)]
	r.mu.RUnlock()
	if !ok {
		log.Debug().Str("op", "bot/dispatch").Str("command", cmd.Name).Int64("chat", cmd.ChatID).Msg("ignoring unknown command")
		return false
	}
	h(ctx, cmd)
	return true
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "/"))
}
