package domain

import "strings"

// ItemRef is a reference-plus-attributes value object: a slot holds an
// opaque item id plus a slot-specific attribute bag. The compositor never
// interprets Attrs; the Fingerprinter folds them into the canonical form
// unchanged (see Open Question 1 in the design notes).
type ItemRef struct {
	ID    string
	Attrs map[string]string
}

// IsZero reports whether the slot is unset (the canonical "none" sentinel).
func (r ItemRef) IsZero() bool {
	return r.ID == ""
}

// Item is the read-only projection of an item's metadata used by the core.
// Description is free-form; only two substrings are inspected.
type Item struct {
	ID          string
	Description string
}

// shoesBehindFlag marks a bottom item whose description asks for the shoes
// layer to render behind it.
const shoesBehindFlag = "!x"

// hairInFrontFlag marks a top item whose description asks for the hair
// layer to render in front of the top/coat layer.
const hairInFrontFlag = "!s"

// ShoesBehindPants reports whether this item's description carries "!x".
func (i Item) ShoesBehindPants() bool {
	return strings.Contains(i.Description, shoesBehindFlag)
}

// HairInFrontOfTop reports whether this item's description carries "!s".
func (i Item) HairInFrontOfTop() bool {
	return strings.Contains(i.Description, hairInFrontFlag)
}
