// Package header implements the header-block validation and
// normalization pipeline: the parser-equivalent barrier between
// untrusted, already-HPACK-decoded header data and the rest of the
// endpoint.
//
// The per-field checks run in one fused pass over an iter.Seq[Field]: a
// check can fail partway through a block, and no field after the
// failing one is pulled from the input sequence. The validators return
// an owned slice; NormalizeOutbound returns a lazy sequence.
package header

//go:generate errtrace -w .

import (
	"iter"
	"slices"
	"strings"

	"golang.org/x/net/http2/hpack"

	"github.com/quietloop/h2core/internal/xerr"
)

// Field is a single header name/value pair together with the HPACK
// never-indexed hint the encoder must honor. It is a direct alias of
// hpack.HeaderField: that type's Sensitive bool already is the
// never-indexed sensitivity flag, so no wrapper type is needed.
type Field = hpack.HeaderField

// NewField returns an ordinary (non-sensitive) Field.
func NewField(name, value string) Field {
	return Field{Name: name, Value: value}
}

// NewSensitiveField returns a never-indexed Field.
func NewSensitiveField(name, value string) Field {
	return Field{Name: name, Value: value, Sensitive: true}
}

// ValidationFlags selects which checks apply to a given header block.
type ValidationFlags struct {
	IsClient         bool
	IsTrailer        bool
	IsResponseHeader bool
	IsPushPromise    bool
}

// connectionHeaders is the RFC 7540 §8.1.2.2 hop-by-hop set, forbidden
// on an HTTP/2 connection.
var connectionHeaders = map[string]bool{
	"connection":        true,
	"proxy-connection":  true,
	"keep-alive":        true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// allowedPseudoHeaders is the only five pseudo-headers HTTP/2 defines.
var allowedPseudoHeaders = map[string]bool{
	":method":    true,
	":scheme":    true,
	":authority": true,
	":path":      true,
	":status":    true,
}

const asciiWhitespace = " \t\n\r\f\v"

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

func hasSurroundingWhitespace(s string) bool {
	if s == "" {
		return false
	}
	return strings.ContainsRune(asciiWhitespace, rune(s[0])) ||
		strings.ContainsRune(asciiWhitespace, rune(s[len(s)-1]))
}

// pseudoState is the running state the pseudo-header ordering check
// needs across the single pass over a block.
type pseudoState struct {
	seen        map[string]bool
	seenRegular bool
}

func newPseudoState() *pseudoState {
	return &pseudoState{seen: make(map[string]bool)}
}

// step applies check 5 to one field name and updates the running state.
// It returns a non-nil error the moment the block is no longer legal.
func (p *pseudoState) step(name string) error {
	if !strings.HasPrefix(name, ":") {
		p.seenRegular = true
		return nil
	}
	if p.seenRegular {
		return xerr.NewProtocolError("pseudo-header out of sequence: %q after a regular header", name)
	}
	if p.seen[name] {
		return xerr.NewProtocolError("duplicate pseudo-header %q", name)
	}
	if !allowedPseudoHeaders[name] {
		return xerr.NewProtocolError("invalid pseudo-header %q", name)
	}
	p.seen[name] = true
	return nil
}

// authorityHostState accumulates :authority/Host bookkeeping during the
// same single pass.
type authorityHostState struct {
	authority      string
	authorityCount int
	host           string
	hostCount      int
}

func (a *authorityHostState) observe(f Field) {
	switch {
	case strings.EqualFold(f.Name, ":authority"):
		a.authority = f.Value
		a.authorityCount++
	case strings.EqualFold(f.Name, "host"):
		a.host = f.Value
		a.hostCount++
	}
}

// check enforces :authority/Host agreement, skipped entirely for
// response headers and trailers.
func (a *authorityHostState) check(flags ValidationFlags) error {
	if flags.IsResponseHeader || flags.IsTrailer {
		return nil
	}
	if a.hostCount > 1 {
		return xerr.NewProtocolError("duplicate Host header")
	}
	if a.authorityCount == 0 && a.hostCount == 0 {
		return xerr.NewProtocolError("header block has neither :authority nor Host")
	}
	if a.authorityCount > 0 && a.hostCount > 0 && a.authority != a.host {
		return xerr.NewProtocolError(
			":authority %q does not match Host %q", a.authority, a.host)
	}
	return nil
}

// validate runs the checks common to both inbound and outbound
// validation (checks 3-6) over fields, and additionally checks 1-2 when
// full is true (the inbound path; the outbound path runs those as part
// of normalization instead).
func validate(fields iter.Seq[Field], flags ValidationFlags, full bool) ([]Field, error) {
	pseudo := newPseudoState()
	authHost := &authorityHostState{}
	var failure error

	pass := func(yield func(Field) bool) {
		for f := range fields {
			if full {
				if err := checkLowercaseName(f.Name); err != nil {
					failure = err
					return
				}
				if err := checkSurroundingWhitespace(f.Name, f.Value); err != nil {
					failure = err
					return
				}
			}
			if err := checkTE(f.Name, f.Value); err != nil {
				failure = err
				return
			}
			if err := checkConnectionHeader(f.Name); err != nil {
				failure = err
				return
			}
			if err := pseudo.step(f.Name); err != nil {
				failure = err
				return
			}
			authHost.observe(f)

			if !yield(f) {
				return
			}
		}
	}

	out := slices.Collect(pass)
	if failure != nil {
		return nil, failure
	}

	if flags.IsTrailer && len(pseudo.seen) > 0 {
		return nil, xerr.NewProtocolError("pseudo-headers present in a trailer block")
	}
	if flags.IsResponseHeader && !pseudo.seen[":status"] {
		return nil, xerr.NewProtocolError("response header block missing :status")
	}
	if err := authHost.check(flags); err != nil {
		return nil, err
	}

	return out, nil
}

func checkLowercaseName(name string) error {
	for i := 0; i < len(name); i++ {
		if isUpperASCII(name[i]) {
			return xerr.NewProtocolError("header name %q contains an uppercase ASCII octet", name)
		}
	}
	return nil
}

func checkSurroundingWhitespace(name, value string) error {
	if hasSurroundingWhitespace(name) {
		return xerr.NewProtocolError("header name %q has surrounding whitespace", name)
	}
	if value != "" && hasSurroundingWhitespace(value) {
		return xerr.NewProtocolError("header %q value has surrounding whitespace", name)
	}
	return nil
}

// checkTE enforces the TE restriction: only "trailers" may ever be
// sent. Check 1 has already run by the time this fires on the inbound
// path, so name is already lowercase; the comparison against "te"
// stays case-sensitive, and only the value comparison against
// "trailers" is case-insensitive.
func checkTE(name, value string) error {
	if name != "te" {
		return nil
	}
	if !strings.EqualFold(value, "trailers") {
		return xerr.NewProtocolError("te header carries value %q, only \"trailers\" is allowed", value)
	}
	return nil
}

func checkConnectionHeader(name string) error {
	if connectionHeaders[strings.ToLower(name)] {
		return xerr.NewProtocolError("connection-specific header %q is forbidden on HTTP/2", name)
	}
	return nil
}

// ValidateInbound applies all six checks, in order, aborting with a
// ProtocolError on the first to fail. On success it returns the block
// unchanged, element-wise, with iteration forced into an owned slice.
func ValidateInbound(fields iter.Seq[Field], flags ValidationFlags) ([]Field, error) {
	return validate(fields, flags, true)
}

// ValidateOutbound applies checks 3, 4, 5, and 6 to a header block that
// has already been through NormalizeOutbound (which is what guarantees
// checks 1 and 2). On any failure no frame should be emitted.
func ValidateOutbound(fields iter.Seq[Field], flags ValidationFlags) ([]Field, error) {
	return validate(fields, flags, false)
}

// emittedSensitivity computes a field's outbound sensitivity:
// credential headers are always forced never-indexed, a short Cookie
// is forced never-indexed, and everything else keeps the
// caller-supplied flag.
func emittedSensitivity(name string, value string, callerSensitive bool) bool {
	switch name {
	case "authorization", "proxy-authorization":
		return true
	case "cookie":
		return len(value) < 20 || callerSensitive
	default:
		return callerSensitive
	}
}

// NormalizeOutbound applies to a header sequence the endpoint is about
// to send: lowercase names, strip surrounding whitespace from names and
// values, drop connection-specific headers, and compute each field's
// emitted sensitivity. It is lazy: nothing runs until the returned
// sequence is iterated, and the result is idempotent (normalizing an
// already-normalized sequence is a no-op).
func NormalizeOutbound(fields iter.Seq[Field]) iter.Seq[Field] {
	return func(yield func(Field) bool) {
		for f := range fields {
			name := strings.ToLower(strings.TrimFunc(f.Name, isASCIIWhitespace))
			value := strings.TrimFunc(f.Value, isASCIIWhitespace)
			if connectionHeaders[name] {
				continue
			}
			out := Field{
				Name:      name,
				Value:     value,
				Sensitive: emittedSensitivity(name, value, f.Sensitive),
			}
			if !yield(out) {
				return
			}
		}
	}
}

func isASCIIWhitespace(r rune) bool {
	return strings.ContainsRune(asciiWhitespace, r)
}

// ExtractMethod returns the value of the first ":method" field in
// fields, or (nil, false) if none is present.
func ExtractMethod(fields iter.Seq[Field]) ([]byte, bool) {
	return extractFirst(fields, ":method")
}

// ExtractAuthority returns the value of the first ":authority" field in
// fields, or (nil, false) if none is present.
func ExtractAuthority(fields iter.Seq[Field]) ([]byte, bool) {
	return extractFirst(fields, ":authority")
}

func extractFirst(fields iter.Seq[Field], name string) ([]byte, bool) {
	for f := range fields {
		if f.Name == name {
			return []byte(f.Value), true
		}
	}
	return nil, false
}

// IsInformationalResponse inspects only the leading pseudo-header run of
// fields (it stops at the first regular header) and reports whether a
// ":status" field was found there whose value begins with '1'.
func IsInformationalResponse(fields iter.Seq[Field]) bool {
	for f := range fields {
		if !strings.HasPrefix(f.Name, ":") {
			return false
		}
		if f.Name == ":status" {
			return len(f.Value) > 0 && f.Value[0] == '1'
		}
	}
	return false
}

// SplitHeaderBlock partitions a flat, ordered header sequence into its
// leading pseudo-header run and trailing regular-header run, the split
// a caller typically needs before inspecting a block's pseudo-headers
// on their own. It does not validate ordering; a pseudo-header
// appearing after the first regular header is attributed to rest, and
// ValidateInbound will reject the block as usual when the two
// sequences are recombined and validated.
func SplitHeaderBlock(fields iter.Seq[Field]) (pseudo, rest iter.Seq[Field]) {
	collected := slices.Collect(fields)
	cut := len(collected)
	for i, f := range collected {
		if !strings.HasPrefix(f.Name, ":") {
			cut = i
			break
		}
	}
	head := collected[:cut]
	tail := collected[cut:]
	return slices.Values(head), slices.Values(tail)
}
