// Package stream turns raw vendor streaming bodies into ordered text deltas.
//
// Every vendor frames its stream as newline-delimited records carrying a
// "data:" prefix, but network reads split those records at arbitrary byte
// offsets. Parser keeps the unterminated tail of each arrival and only
// decodes complete lines, so the text it produces does not depend on where
// the transport cut the body.
//
// Usage:
//
//	parser := stream.NewParser(stream.ChatCompletions, onProgress)
//	if _, err := io.Copy(parser, resp.Body); err != nil {
//	    // transport failure; parser.Text() holds the partial result
//	}
//	parser.Close()
//	if err := parser.Fault(); err != nil {
//	    // the vendor aborted the stream in-band
//	}
package stream

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrAborted is returned by Write once a fault record stopped the parser.
var ErrAborted = errors.New("stream aborted by vendor error record")

// Parser is the per-call incremental parser. It is not safe for
// concurrent use; one call owns one parser.
type Parser struct {
	dialect    Dialect
	onProgress func(string)

	// processed counts source bytes already scanned.
	processed int
	// partial is the trailing fragment not yet terminated by a newline.
	partial []byte

	text      strings.Builder
	delivered int

	receivedAny bool
	done        bool
	fault       error
}

// NewParser creates a parser for one streamed response.
func NewParser(dialect Dialect, onProgress func(string)) *Parser {
	return &Parser{
		dialect:    dialect,
		onProgress: onProgress,
	}
}

// Write consumes the next arrival of raw body bytes. It implements
// io.Writer so a response body can be copied straight into the parser.
// After a fault record Write returns ErrAborted so the copy stops.
func (p *Parser) Write(chunk []byte) (int, error) {
	if p.fault != nil {
		return 0, ErrAborted
	}
	p.processed += len(chunk)
	p.scan(chunk)
	if p.fault != nil {
		return len(chunk), ErrAborted
	}
	return len(chunk), nil
}

// Feed consumes the cumulative body received so far. Only the suffix past
// the already-processed length is scanned, so it may be called with the
// whole growing buffer on every progress notification.
func (p *Parser) Feed(source []byte) error {
	if p.fault != nil {
		return ErrAborted
	}
	if len(source) <= p.processed {
		return nil
	}
	suffix := source[p.processed:]
	p.processed = len(source)
	p.scan(suffix)
	if p.fault != nil {
		return ErrAborted
	}
	return nil
}

// Close processes a final line that was not newline-terminated. Call it
// when the transport completed cleanly.
func (p *Parser) Close() {
	if len(p.partial) == 0 || p.fault != nil {
		p.partial = nil
		return
	}
	line := p.partial
	p.partial = nil
	p.handleLine(line)
}

func (p *Parser) scan(suffix []byte) {
	if p.done || p.fault != nil {
		return
	}

	buf := suffix
	if len(p.partial) > 0 {
		buf = make([]byte, 0, len(p.partial)+len(suffix))
		buf = append(buf, p.partial...)
		buf = append(buf, suffix...)
	}

	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := buf[:idx]
		buf = buf[idx+1:]
		p.handleLine(line)
		if p.done || p.fault != nil {
			p.partial = nil
			return
		}
	}

	p.partial = append(p.partial[:0:0], buf...)
}

func (p *Parser) handleLine(line []byte) {
	line = bytes.TrimRight(line, "\r")
	prefix := p.dialect.prefix()
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return
	}

	payload := bytes.TrimSpace(line[len(prefix):])
	if len(payload) == 0 {
		return
	}
	if p.dialect.Sentinel != "" && string(payload) == p.dialect.Sentinel {
		p.done = true
		return
	}

	record, ok := SafeParse(payload)
	if !ok {
		return
	}

	if p.dialect.Fault != nil {
		if err := p.dialect.Fault(record); err != nil {
			p.fault = err
			return
		}
	}

	delta := p.dialect.Extract(record)
	if delta == "" {
		return
	}
	p.text.WriteString(delta)
	p.receivedAny = true
	p.deliver()
}

// deliver sends everything accumulated past the delivered mark.
func (p *Parser) deliver() {
	full := p.text.String()
	if p.delivered >= len(full) {
		return
	}
	increment := full[p.delivered:]
	p.delivered = len(full)
	if p.onProgress != nil {
		p.onProgress(increment)
	}
}

// Text returns every delta accumulated so far.
func (p *Parser) Text() string { return p.text.String() }

// ReceivedAny reports whether at least one non-empty delta arrived.
func (p *Parser) ReceivedAny() bool { return p.receivedAny }

// Done reports whether the end-of-stream sentinel was seen.
func (p *Parser) Done() bool { return p.done }

// Fault returns the error captured from an in-band vendor error record.
func (p *Parser) Fault() error { return p.fault }

// Processed returns the number of source bytes scanned.
func (p *Parser) Processed() int { return p.processed }

// SafeParse decodes a JSON document without ever panicking. The second
// result is false when data is not valid JSON.
func SafeParse(data []byte) (gjson.Result, bool) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(data), true
}
