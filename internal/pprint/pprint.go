// Package pprint pretty-prints an amf.Value tree with fatih/color marking
// each marker kind — strings, numbers, objects, references — the way a
// developer inspecting AMF traffic off a gateway would want it, for
// cmd/amfcat and cmd/amfwatch.
package pprint

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ssungk/goamf/pkg/amf"
	"github.com/ssungk/goamf/pkg/remoting"
)

var (
	stringColor = color.New(color.FgHiGreen)
	numberColor = color.New(color.FgHiYellow)
	boolColor   = color.New(color.FgHiMagenta)
	classColor  = color.New(color.FgHiCyan)
	nilColor    = color.New(color.FgHiBlack)
	keyColor    = color.New(color.FgWhite)
)

// Value writes a human-readable rendering of v to w, indented for
// nesting.
func Value(w io.Writer, v amf.Value) {
	writeValue(w, v, 0, make(map[amf.Value]bool))
	fmt.Fprintln(w)
}

// Packet writes a human-readable rendering of a Remoting packet to w.
func Packet(w io.Writer, pkt *remoting.Packet) {
	fmt.Fprintf(w, "%s version=%d headers=%d messages=%d\n",
		classColor.Sprint("Packet"), pkt.Version, len(pkt.Headers), len(pkt.Messages))

	for i, h := range pkt.Headers {
		fmt.Fprintf(w, "  header[%d] %s mustUnderstand=%v: ", i, keyColor.Sprint(h.Name), h.MustUnderstand)
		writeValue(w, h.Value, 0, make(map[amf.Value]bool))
		fmt.Fprintln(w)
	}
	for i, m := range pkt.Messages {
		fmt.Fprintf(w, "  message[%d] %s -> %s: ", i, keyColor.Sprint(m.TargetURI), keyColor.Sprint(m.ResponseURI))
		writeValue(w, m.Value, 0, make(map[amf.Value]bool))
		fmt.Fprintln(w)
	}
}

func writeValue(w io.Writer, v amf.Value, depth int, seen map[amf.Value]bool) {
	indent := strings.Repeat("  ", depth)

	switch val := v.(type) {
	case nil:
		fmt.Fprint(w, nilColor.Sprint("nil"))
	case amf.Undefined:
		fmt.Fprint(w, nilColor.Sprint("undefined"))
	case amf.Null:
		fmt.Fprint(w, nilColor.Sprint("null"))
	case amf.Bool:
		fmt.Fprint(w, boolColor.Sprintf("%v", bool(val)))
	case amf.Integer:
		fmt.Fprint(w, numberColor.Sprintf("%d", int32(val)))
	case amf.Double:
		fmt.Fprint(w, numberColor.Sprintf("%g", float64(val)))
	case amf.String:
		fmt.Fprint(w, stringColor.Sprintf("%q", string(val)))
	case *amf.Date:
		fmt.Fprint(w, numberColor.Sprintf("Date(%d)", val.Millis))
	case *amf.ByteArray:
		fmt.Fprint(w, numberColor.Sprintf("ByteArray(%d bytes)", len(val.Bytes)))
	case *amf.XmlDoc:
		fmt.Fprint(w, stringColor.Sprintf("XmlDoc(%q)", val.Content))
	case *amf.Xml:
		fmt.Fprint(w, stringColor.Sprintf("Xml(%q)", val.Content))
	case *amf.Array:
		if seen[v] {
			fmt.Fprint(w, nilColor.Sprint("<cycle>"))
			return
		}
		seen[v] = true
		fmt.Fprintln(w, "[")
		for i, item := range val.Dense {
			fmt.Fprintf(w, "%s  [%d] = ", indent, i)
			writeValue(w, item, depth+1, seen)
			fmt.Fprintln(w)
		}
		for _, p := range val.Assoc {
			fmt.Fprintf(w, "%s  %s = ", indent, keyColor.Sprint(p.Key))
			writeValue(w, p.Value, depth+1, seen)
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s]", indent)
	case *amf.Object:
		if seen[v] {
			fmt.Fprint(w, nilColor.Sprint("<cycle>"))
			return
		}
		seen[v] = true
		name := val.ClassName
		if name == "" {
			name = "Object"
		}
		fmt.Fprintf(w, "%s {\n", classColor.Sprint(name))
		for _, p := range append(append([]amf.Pair{}, val.Sealed...), val.DynamicProps...) {
			fmt.Fprintf(w, "%s  %s = ", indent, keyColor.Sprint(p.Key))
			writeValue(w, p.Value, depth+1, seen)
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s}", indent)
	case *amf.AVM3:
		fmt.Fprint(w, nilColor.Sprint("AVM3("))
		writeValue(w, val.Value, depth, seen)
		fmt.Fprint(w, nilColor.Sprint(")"))
	default:
		fmt.Fprintf(w, "%v", val)
	}
}
