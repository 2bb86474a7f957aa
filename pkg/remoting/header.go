package remoting

import (
	uuid "github.com/satori/go.uuid"

	"github.com/ssungk/goamf/pkg/amf"
)

// DSIdHeaderName is the Remoting header Red5's gateway stamps on every
// connection to carry a Flex RemoteObject session id.
const DSIdHeaderName = "DSId"

// NewDSIdHeader returns a DSId header carrying a freshly generated UUID,
// matching what a Remoting gateway stamps on a connection that didn't
// supply its own session id.
func NewDSIdHeader() Header {
	return Header{
		Name:           DSIdHeaderName,
		MustUnderstand: false,
		Value:          amf.String(uuid.NewV4().String()),
	}
}

// HeaderByName returns the first header named name, if present.
func (p *Packet) HeaderByName(name string) (Header, bool) {
	for _, h := range p.Headers {
		if h.Name == name {
			return h, true
		}
	}
	return Header{}, false
}

// EnsureDSId appends a freshly generated DSId header if the packet does
// not already carry one, for callers building a packet without an
// established session.
func (p *Packet) EnsureDSId() {
	if _, ok := p.HeaderByName(DSIdHeaderName); ok {
		return
	}
	p.Headers = append(p.Headers, NewDSIdHeader())
}
