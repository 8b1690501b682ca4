// xml.go implements the wire form for domains.
//
// The format is append-rendered rather than built through a DOM so the
// output is bit-exact: logs produced by one process are replayed by
// another with byte comparison. Parsing uses encoding/xml and is the
// exact inverse for every shape ToXML can emit, except that an empty set
// always parses back with Symbol kind, whatever kind it was built with.
//
// Element shapes:
//
//	<value type="bool" name="true"/>         boolean singleton
//	<value type="int" name="42"/>            integer singleton
//	<value type="float" name="1.500000"/>    other numeric singleton, fixed-point
//	<symbol type="TYPE" value="STR"/>        symbolic singleton
//	<object value="NAME"/>                   entity singleton
//	<set type="TYPE">...</set>               enumerated, empty form self-closes
//	<interval type="TYPE" min="LO" max="HI"/>
package domain

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ToXML renders the domain in wire form. An empty interval domain renders
// to nothing; an empty enumerated domain renders as a self-closing set.
func ToXML(d *Domain) string {
	if d == nil {
		return ""
	}
	if d.IsSingleton() {
		v, _ := d.Singleton()
		return singletonXML(d.typeName, v)
	}
	if d.interval {
		if d.IsEmpty() {
			return ""
		}
		return fmt.Sprintf("<interval type=%q min=%q max=%q/>",
			d.typeName, d.lo.String(), d.hi.String())
	}
	if len(d.values) == 0 {
		return fmt.Sprintf("<set type=%q/>", d.typeName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<set type=%q>", d.typeName)
	for _, v := range d.values {
		b.WriteString(singletonXML(d.typeName, v))
	}
	b.WriteString("</set>")
	return b.String()
}

func singletonXML(typeName string, v Value) string {
	switch v.Kind {
	case Bool:
		return fmt.Sprintf("<value type=\"bool\" name=%q/>", v.String())
	case Int, Float:
		return fmt.Sprintf("<value type=%q name=%q/>", typeName, v.String())
	case Entity:
		return fmt.Sprintf("<object value=%q/>", v.S)
	default:
		return fmt.Sprintf("<symbol type=%q value=%q/>", typeName, v.S)
	}
}

// FromXML parses a single domain element previously produced by ToXML.
func FromXML(data string) (*Domain, error) {
	dec := xml.NewDecoder(bytes.NewReader([]byte(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse domain: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return parseElement(dec, start)
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*Domain, error) {
	switch start.Name.Local {
	case "value":
		typeName, name := attr(start, "type"), attr(start, "name")
		v, err := parseScalar(typeName, name)
		if err != nil {
			return nil, err
		}
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return NewSingleton(typeName, v), nil

	case "symbol":
		typeName, val := attr(start, "type"), attr(start, "value")
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return NewSingleton(typeName, SymbolVal(val)), nil

	case "object":
		val := attr(start, "value")
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return NewSingleton("object", EntityVal(val)), nil

	case "set":
		typeName := attr(start, "type")
		var values []Value
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse set: %w", err)
			}
			if _, done := tok.(xml.EndElement); done {
				break
			}
			child, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}
			member, err := parseElement(dec, child)
			if err != nil {
				return nil, err
			}
			v, err := member.Singleton()
			if err != nil {
				return nil, fmt.Errorf("parse set: member is not a singleton")
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			// Member kind is unrecoverable from an empty set; it is read
			// back as Symbol.
			return &Domain{typeName: typeName, kind: Symbol}, nil
		}
		return NewEnumerated(typeName, values[0].Kind, values...)

	case "interval":
		typeName := attr(start, "type")
		lo, err := parseScalar(typeName, attr(start, "min"))
		if err != nil {
			return nil, err
		}
		hi, err := parseScalar(typeName, attr(start, "max"))
		if err != nil {
			return nil, err
		}
		if err := dec.Skip(); err != nil {
			return nil, err
		}
		return NewInterval(typeName, lo, hi)

	default:
		return nil, fmt.Errorf("parse domain: unknown element <%s>", start.Name.Local)
	}
}

// parseScalar interprets an attribute string as a boolean, integer or
// float according to the declared type name.
func parseScalar(typeName, s string) (Value, error) {
	if typeName == "bool" || typeName == "BOOL" {
		switch s {
		case "true":
			return BoolVal(true), nil
		case "false":
			return BoolVal(false), nil
		}
		return Value{}, fmt.Errorf("parse domain: bad bool %q", s)
	}
	switch s {
	case "+inf":
		return FloatVal(math.Inf(1)), nil
	case "-inf":
		return FloatVal(math.Inf(-1)), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntVal(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("parse domain: bad numeric %q: %w", s, err)
	}
	return FloatVal(f), nil
}

func attr(e xml.StartElement, name string) string {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
