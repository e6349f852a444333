/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package xmpp

import (
	"strconv"
)

const stanzaErrorNamespace = "urn:ietf:params:xml:ns:xmpp-stanzas"

const (
	authErrorType   = "auth"
	cancelErrorType = "cancel"
	modifyErrorType = "modify"
	waitErrorType   = "wait"
)

// Defined stanza error conditions.
const (
	BadRequestCondition            = "bad-request"
	ConflictCondition              = "conflict"
	FeatureNotImplementedCondition = "feature-not-implemented"
	ForbiddenCondition             = "forbidden"
	InternalServerErrorCondition   = "internal-server-error"
	ItemNotFoundCondition          = "item-not-found"
	JidMalformedCondition          = "jid-malformed"
	NotAcceptableCondition         = "not-acceptable"
	NotAllowedCondition            = "not-allowed"
	NotAuthorizedCondition         = "not-authorized"
	RecipientUnavailableCondition  = "recipient-unavailable"
	RegistrationRequiredCondition  = "registration-required"
	RemoteServerNotFoundCondition  = "remote-server-not-found"
	RemoteServerTimeoutCondition   = "remote-server-timeout"
	ResourceConstraintCondition    = "resource-constraint"
	ServiceUnavailableCondition    = "service-unavailable"
	UndefinedConditionCondition    = "undefined-condition"
)

// StanzaError represents a stanza "error" element.
type StanzaError struct {
	code      int
	errorType string
	condition string
	text      string
}

func newStanzaError(code int, errorType string, condition string) *StanzaError {
	return &StanzaError{
		code:      code,
		errorType: errorType,
		condition: condition,
	}
}

// NewStanzaErrorFromStanza reads the defined condition and descriptive text
// out of an error-typed stanza. An undefined-condition error is returned when
// the stanza carries no recognizable error child.
func NewStanzaErrorFromStanza(stanza XElement) *StanzaError {
	se := &StanzaError{errorType: cancelErrorType, condition: UndefinedConditionCondition}
	errElem := stanza.Error()
	if errElem == nil {
		return se
	}
	if code := errElem.Attributes().Get("code"); len(code) > 0 {
		se.code, _ = strconv.Atoi(code)
	}
	if typ := errElem.Attributes().Get("type"); len(typ) > 0 {
		se.errorType = typ
	}
	for _, child := range errElem.Elements().All() {
		if child.Namespace() != stanzaErrorNamespace {
			continue
		}
		if child.Name() == "text" {
			se.text = child.Text()
		} else {
			se.condition = child.Name()
		}
	}
	return se
}

// Error satisfies error interface.
func (se *StanzaError) Error() string {
	if len(se.text) > 0 {
		return se.condition + ": " + se.text
	}
	return se.condition
}

// Code returns the legacy numeric error code.
func (se *StanzaError) Code() int {
	return se.code
}

// Type returns the error type attribute (auth, cancel, modify or wait).
func (se *StanzaError) Type() string {
	return se.errorType
}

// Condition returns the defined error condition.
func (se *StanzaError) Condition() string {
	return se.condition
}

// Text returns the optional descriptive error text.
func (se *StanzaError) Text() string {
	return se.text
}

// Element returns StanzaError equivalent XML element.
func (se *StanzaError) Element() *Element {
	errElem := NewElementName("error")
	if se.code > 0 {
		errElem.SetAttribute("code", strconv.Itoa(se.code))
	}
	errElem.SetAttribute("type", se.errorType)
	errElem.AppendElement(NewElementNamespace(se.condition, stanzaErrorNamespace))
	if len(se.text) > 0 {
		textElem := NewElementNamespace("text", stanzaErrorNamespace)
		textElem.SetText(se.text)
		errElem.AppendElement(textElem)
	}
	return errElem
}

// NewErrorElementFromElement returns a copy of an element of error class.
func NewErrorElementFromElement(elem XElement, stanzaErr *StanzaError) *Element {
	e := NewElementFromElement(elem)
	e.SetType(ErrorType)
	e.SetFrom(elem.To())
	e.SetTo(elem.From())
	e.AppendElement(stanzaErr.Element())
	return e
}

var (
	// ErrBadRequest is returned by the stream when the sender
	// has sent XML that is malformed or that cannot be processed.
	ErrBadRequest = newStanzaError(400, modifyErrorType, BadRequestCondition)

	// ErrConflict is returned by the stream when access cannot be
	// granted because an existing resource or session exists with
	// the same name or address.
	ErrConflict = newStanzaError(409, cancelErrorType, ConflictCondition)

	// ErrFeatureNotImplemented is returned by the stream when the feature
	// requested is not implemented by the recipient and cannot be processed.
	ErrFeatureNotImplemented = newStanzaError(501, cancelErrorType, FeatureNotImplementedCondition)

	// ErrForbidden is returned by the stream when the requesting
	// entity does not possess the required permissions to perform the action.
	ErrForbidden = newStanzaError(403, authErrorType, ForbiddenCondition)

	// ErrInternalServerError is returned by the stream when the server
	// could not process the stanza because of an internal server error.
	ErrInternalServerError = newStanzaError(500, waitErrorType, InternalServerErrorCondition)

	// ErrItemNotFound is returned by the stream when the addressed
	// JID or item requested cannot be found.
	ErrItemNotFound = newStanzaError(404, cancelErrorType, ItemNotFoundCondition)

	// ErrJidMalformed is returned by the stream when the sending entity
	// has provided an XMPP address that does not adhere to the defined syntax.
	ErrJidMalformed = newStanzaError(400, modifyErrorType, JidMalformedCondition)

	// ErrNotAllowed is returned by the stream when the recipient
	// or server does not allow any entity to perform the action.
	ErrNotAllowed = newStanzaError(405, cancelErrorType, NotAllowedCondition)

	// ErrNotAuthorized is returned by the stream when the sender
	// must provide proper credentials before being allowed to perform the action.
	ErrNotAuthorized = newStanzaError(405, authErrorType, NotAuthorizedCondition)

	// ErrRemoteServerTimeout is returned by the stream when a remote server
	// or service could not be contacted within a reasonable amount of time.
	ErrRemoteServerTimeout = newStanzaError(504, waitErrorType, RemoteServerTimeoutCondition)

	// ErrServiceUnavailable is returned by the stream when the server or
	// recipient does not currently provide the requested service.
	ErrServiceUnavailable = newStanzaError(503, cancelErrorType, ServiceUnavailableCondition)

	// ErrUndefinedCondition is returned by the stream when the error
	// condition is not one of those defined by the other conditions.
	ErrUndefinedCondition = newStanzaError(500, waitErrorType, UndefinedConditionCondition)
)
