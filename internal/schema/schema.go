// Package schema holds the declarative command descriptions that drive
// dispatch, authorization, and client generation. A Service value is static
// data built once at startup; nothing here has behavior beyond lookup.
package schema

import "fmt"

// Group tokens recognized by the authorization check. Tiers are hierarchical
// (user < service < network); roles are independent flags.
const (
	GroupNetwork = "network"
	GroupService = "service"
	GroupUser    = "user"
	GroupSuper   = "super"
	GroupAdmin   = "admin"
	GroupHero    = "hero"
)

// Spec describes a single value: an argument, a return shape, or an object
// property.
type Spec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
	// Object names a shared object definition from Service.Objects.
	Object string `json:"$Object,omitempty"`
}

// Property is a named Spec. Argument properties are kept as an ordered slice
// because declaration order defines positional call order.
type Property struct {
	Name string
	Spec Spec
}

// Arguments describes a command's argument bag.
type Arguments struct {
	Properties []Property
	Required   []string
}

// Command describes one invocable operation.
type Command struct {
	Name        string
	Description string
	// Groups lists the authorization requirements. Empty means anonymous
	// access.
	Groups    []string
	Arguments Arguments
	Returns   Spec
}

// Object is a named structured type referenced by commands.
type Object struct {
	Description string
	Properties  []Property
}

// Service is the complete declarative description of one service.
type Service struct {
	Name     string
	Objects  map[string]Object
	commands []Command
	index    map[string]int
}

// NewService returns an empty schema for the named service.
func NewService(name string) *Service {
	return &Service{
		Name:    name,
		Objects: make(map[string]Object),
		index:   make(map[string]int),
	}
}

// MustAdd registers a command, panicking on duplicates. Schemas are built
// from literals at startup, so a duplicate is a programming error.
func (s *Service) MustAdd(cmd Command) {
	if cmd.Name == "" {
		panic("schema: command name is required")
	}
	if _, exists := s.index[cmd.Name]; exists {
		panic(fmt.Sprintf("schema: duplicate command [%s] in service [%s]", cmd.Name, s.Name))
	}
	s.index[cmd.Name] = len(s.commands)
	s.commands = append(s.commands, cmd)
}

// Command looks up a command by name.
func (s *Service) Command(name string) (*Command, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.commands[i], true
}

// Commands returns the commands in declaration order.
func (s *Service) Commands() []Command {
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Anonymous reports whether the command requires no authorization group.
func (c *Command) Anonymous() bool {
	return len(c.Groups) == 0
}

// HasGroup reports whether the command lists the given group token.
func (c *Command) HasGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}
