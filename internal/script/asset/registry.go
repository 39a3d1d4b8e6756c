// Package asset loads scripted events from YAML and keeps the table of
// script variants that can appear in them.
package asset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tsani/sixteen-fifty/internal/script"
)

// DecodeFunc builds a script from the body of its YAML node.
type DecodeFunc func(d *Decoder, body *yaml.Node) (script.Script, error)

// Variant describes one script variant for authoring tools and the loader.
type Variant struct {
	Tag          script.Kind
	FriendlyName string
	Decode       DecodeFunc
}

var (
	ErrDuplicateVariant = errors.New("variant already registered")
	ErrInvalidVariant   = errors.New("invalid variant")
)

// Registry maps variant tags to their decoders. Variants are registered
// explicitly at startup.
type Registry struct {
	mu       sync.RWMutex
	variants map[script.Kind]Variant
}

func NewRegistry() *Registry {
	return &Registry{variants: make(map[script.Kind]Variant)}
}

// Register adds v. Tags must be unique and every variant needs a decoder.
func (r *Registry) Register(v Variant) error {
	if v.Tag == "" || v.Decode == nil {
		return fmt.Errorf("%w: tag %q", ErrInvalidVariant, v.Tag)
	}
	if v.FriendlyName == "" {
		v.FriendlyName = string(v.Tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.variants[v.Tag]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateVariant, v.Tag)
	}
	r.variants[v.Tag] = v
	return nil
}

// Lookup returns the variant registered under tag.
func (r *Registry) Lookup(tag script.Kind) (Variant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[tag]
	return v, ok
}

// Variants returns every registered variant ordered by friendly name.
func (r *Registry) Variants() []Variant {
	r.mu.RLock()
	out := make([]Variant, 0, len(r.variants))
	for _, v := range r.variants {
		out = append(out, v)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FriendlyName != out[j].FriendlyName {
			return out[i].FriendlyName < out[j].FriendlyName
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// DefaultRegistry returns a registry holding every built-in script variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, v := range []Variant{
		{Tag: script.KindSubroutine, FriendlyName: "Subroutine", Decode: decodeSubroutine},
		{Tag: script.KindDelay, FriendlyName: "Delay", Decode: decodeDelay},
		{Tag: script.KindBlock, FriendlyName: "Block", Decode: decodeBlock},
		{Tag: script.KindDialogue, FriendlyName: "Dialogue", Decode: decodeDialogue},
		{Tag: script.KindShowSpeaker, FriendlyName: "Show Speaker", Decode: decodeShowSpeaker},
		{Tag: script.KindHideSpeaker, FriendlyName: "Hide Speaker", Decode: decodeHideSpeaker},
		{Tag: script.KindBranch, FriendlyName: "Branch", Decode: decodeBranch},
		{Tag: script.KindSetVariable, FriendlyName: "Set Variable", Decode: decodeSetVariable},
		{Tag: script.KindMoveEntity, FriendlyName: "Move Entity", Decode: decodeMoveEntity},
	} {
		if err := r.Register(v); err != nil {
			panic(err)
		}
	}
	return r
}
