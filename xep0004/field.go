/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xep0004

import (
	"fmt"

	"github.com/aether-im/aether/xmpp"
)

// FormType represents form type constant value.
const FormType = "FORM_TYPE"

const (
	// Boolean represents a 'boolean' form field.
	Boolean = "boolean"

	// Fixed represents a 'fixed' form field.
	Fixed = "fixed"

	// Hidden represents a 'hidden' form field.
	Hidden = "hidden"

	// JidMulti represents a 'jid-multi' form field.
	JidMulti = "jid-multi"

	// JidSingle represents a 'jid-single' form field.
	JidSingle = "jid-single"

	// ListMulti represents a 'list-multi' form field.
	ListMulti = "list-multi"

	// ListSingle represents a 'list-single' form field.
	ListSingle = "list-single"

	// TextMulti represents a 'text-multi' form field.
	TextMulti = "text-multi"

	// TextPrivate represents a 'text-private' form field.
	TextPrivate = "text-private"

	// TextSingle represents a 'text-single' form field.
	TextSingle = "text-single"
)

// Option represents an individual field option.
type Option struct {
	Label string
	Value string
}

// Field represents a field of a form. The field could be used to represent a question to complete,
// a completed question or a data returned from a search.
type Field struct {
	Var         string
	Required    bool
	Type        string
	Label       string
	Description string
	Values      []string
	Options     []Option
}

// NewFieldFromElement returns a new form field entity reading it from it's XML representation.
func NewFieldFromElement(elem xmpp.XElement) (*Field, error) {
	if n := elem.Name(); n != "field" {
		return nil, fmt.Errorf("xep0004: invalid field name: %s", n)
	}
	typ := elem.Attributes().Get("type")
	if len(typ) > 0 && !isValidFieldType(typ) {
		return nil, fmt.Errorf("xep0004: invalid field type: %s", typ)
	}
	f := &Field{
		Var:   elem.Attributes().Get("var"),
		Type:  typ,
		Label: elem.Attributes().Get("label"),
	}
	if desc := elem.Elements().Child("desc"); desc != nil {
		f.Description = desc.Text()
	}
	if required := elem.Elements().Child("required"); required != nil {
		f.Required = true
	}
	for _, val := range elem.Elements().Children("value") {
		f.Values = append(f.Values, val.Text())
	}
	for _, opt := range elem.Elements().Children("option") {
		var value string
		if v := opt.Elements().Child("value"); v != nil {
			value = v.Text()
		}
		f.Options = append(f.Options, Option{Label: opt.Attributes().Get("label"), Value: value})
	}
	return f, nil
}

// Element returns form field XML representation.
func (f *Field) Element() xmpp.XElement {
	elem := xmpp.NewElementName("field")
	if len(f.Type) > 0 {
		elem.SetAttribute("type", f.Type)
	}
	if len(f.Label) > 0 {
		elem.SetAttribute("label", f.Label)
	}
	if len(f.Var) > 0 {
		elem.SetAttribute("var", f.Var)
	}
	if f.Required {
		elem.AppendElement(xmpp.NewElementName("required"))
	}
	if len(f.Description) > 0 {
		descElem := xmpp.NewElementName("desc")
		descElem.SetText(f.Description)
		elem.AppendElement(descElem)
	}
	for _, value := range f.Values {
		valueElem := xmpp.NewElementName("value")
		valueElem.SetText(value)
		elem.AppendElement(valueElem)
	}
	for _, option := range f.Options {
		optElem := xmpp.NewElementName("option")
		if len(option.Label) > 0 {
			optElem.SetAttribute("label", option.Label)
		}
		valueElem := xmpp.NewElementName("value")
		valueElem.SetText(option.Value)
		optElem.AppendElement(valueElem)
		elem.AppendElement(optElem)
	}
	return elem
}

func isValidFieldType(typ string) bool {
	switch typ {
	case Boolean, Fixed, Hidden, JidMulti, JidSingle, ListMulti,
		ListSingle, TextMulti, TextPrivate, TextSingle:
		return true
	}
	return false
}
