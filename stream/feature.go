/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package stream

import (
	"github.com/aether-im/aether/xmpp"
)

// featureStatus represents the outcome of a feature negotiation step.
type featureStatus int

const (
	// featurePending means the feature expects more elements from the server.
	featurePending featureStatus = iota

	// featureReady means the feature finished and negotiation may continue
	// with the next remaining feature.
	featureReady

	// featureReadyRestart means the feature finished establishing a new
	// stream layer, so negotiation must restart from a fresh stream header.
	featureReadyRestart
)

// feature represents a pluggable stream negotiation feature.
// At most one feature is active at a time. While active, every inbound
// element is handed to it before any general dispatch takes place.
type feature interface {
	// Name returns the feature element name.
	Name() string

	// Namespace returns the feature element namespace.
	Namespace() string

	// Priority returns feature negotiation priority.
	// Features with a lower value are negotiated first.
	Priority() int

	// Start begins feature negotiation given its advertised sub-element.
	Start(elem xmpp.XElement) error

	// ProcessElement handles an element received while the feature is active.
	ProcessElement(elem xmpp.XElement) (featureStatus, error)
}

// matchedFeature returns the advertised sub-element f refers to, if present.
func matchedFeature(f feature, features xmpp.XElement) xmpp.XElement {
	if features == nil {
		return nil
	}
	return features.Elements().ChildNamespace(f.Name(), f.Namespace())
}
