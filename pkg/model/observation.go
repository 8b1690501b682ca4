// observation.go defines the observation record and its two shapes.
//
// An observation states, for one (timeline, tick), the active predicate
// and the values of its parameters. The owner of the timeline emits
// exactly one per tick during its synchronization; the bus fans it out to
// every subscriber before any of them synchronizes for that tick.
//
// Two shapes share the contract: ObservationByValue snapshots its
// parameter domains at construction, ObservationByReference reads them
// from a live token on demand. Subscribers cannot tell them apart.
package model

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/automenta/trex-autonomy/pkg/domain"
)

// Observation is an immutable fact about a timeline at a tick.
type Observation interface {
	// Timeline names the timeline the observation is on.
	Timeline() string
	// Predicate names the active predicate.
	Predicate() string
	// ParameterCount returns the number of parameter bindings.
	ParameterCount() int
	// Parameter returns the i-th binding.
	Parameter(i int) Param
}

// ObservationByValue is a snapshot observation carrying owned domains.
type ObservationByValue struct {
	timeline  string
	predicate string
	params    []Param
}

// NewObservation builds an empty by-value observation.
func NewObservation(timeline, predicate string) *ObservationByValue {
	return &ObservationByValue{timeline: timeline, predicate: predicate}
}

// Push appends a parameter binding.
func (o *ObservationByValue) Push(name string, d *domain.Domain) *ObservationByValue {
	o.params = append(o.params, Param{Name: name, Domain: d})
	return o
}

func (o *ObservationByValue) Timeline() string { return o.timeline }
func (o *ObservationByValue) Predicate() string { return o.predicate }
func (o *ObservationByValue) ParameterCount() int { return len(o.params) }
func (o *ObservationByValue) Parameter(i int) Param { return o.params[i] }

// ObservationByReference is backed by a live token; parameter domains are
// read at access time, not copied.
type ObservationByReference struct {
	token *Token
}

// NewObservationByReference wraps a token whose timeline binding is
// already grounded.
func NewObservationByReference(tok *Token) *ObservationByReference {
	return &ObservationByReference{token: tok}
}

func (o *ObservationByReference) Timeline() string { return o.token.Timeline }
func (o *ObservationByReference) Predicate() string { return o.token.Predicate }
func (o *ObservationByReference) ParameterCount() int { return len(o.token.Params) }
func (o *ObservationByReference) Parameter(i int) Param { return o.token.Params[i] }

// ObservationString renders an observation for log output in the
// "[tick]ON timeline ASSERT predicate" form.
func ObservationString(o Observation, tick Tick) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]ON %s ASSERT %s{", tick, o.Timeline(), o.Predicate())
	for i := 0; i < o.ParameterCount(); i++ {
		p := o.Parameter(i)
		fmt.Fprintf(&b, " %s==%s", p.Name, p.Domain)
	}
	b.WriteString(" }")
	return b.String()
}

// ObservationXML renders the wire form. A parameterless observation
// self-closes.
func ObservationXML(o Observation) string {
	if o.ParameterCount() == 0 {
		return fmt.Sprintf("<Observation on=%q predicate=%q/>", o.Timeline(), o.Predicate())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<Observation on=%q predicate=%q>", o.Timeline(), o.Predicate())
	for i := 0; i < o.ParameterCount(); i++ {
		p := o.Parameter(i)
		fmt.Fprintf(&b, "<Assert name=%q>%s</Assert>", p.Name, domain.ToXML(p.Domain))
	}
	b.WriteString("</Observation>")
	return b.String()
}

// ParseObservation is the inverse of ObservationXML, used for replay.
func ParseObservation(data string) (*ObservationByValue, error) {
	dec := xml.NewDecoder(bytes.NewReader([]byte(data)))
	var obs *ObservationByValue
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse observation: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "Observation" {
			return nil, fmt.Errorf("parse observation: unexpected element <%s>", start.Name.Local)
		}
		obs = NewObservation(xmlAttr(start, "on"), xmlAttr(start, "predicate"))
		break
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse observation: %w", err)
		}
		switch el := tok.(type) {
		case xml.EndElement:
			if el.Name.Local == "Observation" {
				return obs, nil
			}
		case xml.StartElement:
			if el.Name.Local != "Assert" {
				return nil, fmt.Errorf("parse observation: unexpected element <%s>", el.Name.Local)
			}
			name := xmlAttr(el, "name")
			d, err := parseAssertBody(dec)
			if err != nil {
				return nil, err
			}
			obs.Push(name, d)
		}
	}
}

// parseAssertBody consumes the single domain element inside an <Assert>
// and its closing tag.
func parseAssertBody(dec *xml.Decoder) (*domain.Domain, error) {
	var buf bytes.Buffer
	depth := 0
	enc := xml.NewEncoder(&buf)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse assert: %w", err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				// Closing </Assert>.
				if err := enc.Flush(); err != nil {
					return nil, err
				}
				return domain.FromXML(buf.String())
			}
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, fmt.Errorf("parse assert: %w", err)
		}
	}
}

func xmlAttr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
