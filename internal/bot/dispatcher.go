package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dam2452/ranchbot/internal/auth"
	"github.com/dam2452/ranchbot/pkg/types"
)

// Handler executes one command for an already-authorized identity.
type Handler func(ctx context.Context, identity types.UserIdentity, args []string) (Response, error)

// Command is one registry entry: name, minimum tier, argument bounds
// and the function that runs it.
type Command struct {
	Name    string
	MinTier types.Tier
	Usage   string
	Summary string
	MinArgs int
	MaxArgs int // -1 means unbounded
	Handler Handler
}

// Registry maps command names to their specs. Built once at startup;
// read-only afterwards.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates a registry from the given commands.
func NewRegistry(commands []Command) *Registry {
	m := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		m[cmd.Name] = cmd
	}
	return &Registry{commands: m}
}

// MinTiers returns the command -> minimum tier table for the gate.
func (r *Registry) MinTiers() map[string]types.Tier {
	tiers := make(map[string]types.Tier, len(r.commands))
	for name, cmd := range r.commands {
		tiers[name] = cmd.MinTier
	}
	return tiers
}

// Commands lists all registry entries sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatcher is the single entry point both transports call. Checks run
// strictly before execution: permission, then rate window, then
// argument count, then the handler. A rejected command never mutates
// user state.
type Dispatcher struct {
	registry *Registry
	gate     *auth.Gate
	limiter  *auth.Limiter
	logger   *slog.Logger
}

// NewDispatcher wires the registry to its gate and rate limiter.
func NewDispatcher(registry *Registry, gate *auth.Gate, limiter *auth.Limiter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, gate: gate, limiter: limiter, logger: logger}
}

// Dispatch runs one command and returns its response envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, identity types.UserIdentity, name string, args []string) (Response, error) {
	start := time.Now()

	resp, err := d.dispatch(ctx, identity, name, args)

	if err != nil {
		d.logger.Warn("command failed",
			"command", name,
			"user", identity.UserID,
			"tier", identity.Tier.String(),
			"kind", types.KindOf(err).String(),
			"error", err,
			"duration", time.Since(start),
		)
		return Response{}, err
	}

	d.logger.Info("command ok",
		"command", name,
		"user", identity.UserID,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, identity types.UserIdentity, name string, args []string) (Response, error) {
	if err := d.gate.Authorize(identity, name); err != nil {
		return Response{}, err
	}
	if err := d.limiter.Allow(identity); err != nil {
		return Response{}, err
	}

	cmd := d.registry.commands[name] // gate already rejected unknown names

	if len(args) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs) {
		return Response{}, types.NewError(types.KindValidation,
			fmt.Sprintf("usage: %s %s", cmd.Name, cmd.Usage))
	}

	return cmd.Handler(ctx, identity, args)
}
