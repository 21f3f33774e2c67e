// Package patch defines the edit operations produced by a tree diff.
//
// Patches reference nodes of the changed tree (or, for removals, the removed node of
// the original tree). Their order is significant: replaying them front to back never
// refers to a sibling that has not been placed yet.
package patch

import (
	"github.com/dgallion1/docdiff/internal/doctree"
	"golang.org/x/net/html"
)

// Action names a patch variant.
type Action string

const (
	AddText         Action = "addTextElement"
	ModifyText      Action = "modifyTextElement"
	RemoveText      Action = "removeTextElement"
	AddElement      Action = "addElement"
	RemoveElement   Action = "removeElement"
	Replace         Action = "replaceElement"
	TagChanged      Action = "tagChanged"
	AddAttribute    Action = "addAttribute"
	RemoveAttribute Action = "removeAttribute"
	ModifyAttribute Action = "modifyAttribute"
)

// AnchorKind says how a removed node is positioned relative to the changed tree.
type AnchorKind string

const (
	AnchorNone   AnchorKind = "none"
	AnchorBefore AnchorKind = "before"
	AnchorAfter  AnchorKind = "after"
	AnchorIn     AnchorKind = "in"
)

// Anchor locates a removed node: before or after a node of the changed tree, or
// inside a changed-tree parent.
type Anchor struct {
	Kind AnchorKind
	Node *html.Node
}

func Before(n *html.Node) Anchor { return Anchor{Kind: AnchorBefore, Node: n} }
func After(n *html.Node) Anchor  { return Anchor{Kind: AnchorAfter, Node: n} }
func In(n *html.Node) Anchor     { return Anchor{Kind: AnchorIn, Node: n} }
func None() Anchor               { return Anchor{Kind: AnchorNone} }

// Patch is a single edit operation. Which fields are set depends on Action.
type Patch struct {
	Action Action

	// Node is the changed-tree node the patch pertains to, or the removed node.
	Node *html.Node
	// Old is the original node replaced by Node (Replace only).
	Old *html.Node

	OldValue string // ModifyText, ModifyAttribute
	NewValue string // ModifyText, ModifyAttribute

	Name  string // attribute patches
	Value string // AddAttribute, RemoveAttribute

	OldTag string // TagChanged
	NewTag string // TagChanged

	Anchor Anchor // RemoveText, RemoveElement
}

// Add builds an AddText or AddElement patch depending on the node type.
func Add(n *html.Node) *Patch {
	if doctree.IsText(n) {
		return &Patch{Action: AddText, Node: n}
	}
	return &Patch{Action: AddElement, Node: n}
}

// Remove builds a RemoveText or RemoveElement patch depending on the node type.
func Remove(n *html.Node, anchor Anchor) *Patch {
	if doctree.IsText(n) {
		return &Patch{Action: RemoveText, Node: n, Anchor: anchor}
	}
	return &Patch{Action: RemoveElement, Node: n, Anchor: anchor}
}

// Modify builds a ModifyText patch for a text node whose value changed.
func Modify(old, changed *html.Node) *Patch {
	return &Patch{Action: ModifyText, Node: changed, OldValue: old.Data, NewValue: changed.Data}
}

// ReplaceNode builds a Replace patch.
func ReplaceNode(old, changed *html.Node) *Patch {
	return &Patch{Action: Replace, Node: changed, Old: old}
}

// Retag builds a TagChanged patch.
func Retag(oldTag, newTag string, changed *html.Node) *Patch {
	return &Patch{Action: TagChanged, Node: changed, OldTag: oldTag, NewTag: newTag}
}

// IsRemoval reports whether the patch removes a node.
func (p *Patch) IsRemoval() bool {
	return p.Action == RemoveText || p.Action == RemoveElement
}

// IsAttribute reports whether the patch touches an attribute.
func (p *Patch) IsAttribute() bool {
	switch p.Action {
	case AddAttribute, RemoveAttribute, ModifyAttribute:
		return true
	}
	return false
}
