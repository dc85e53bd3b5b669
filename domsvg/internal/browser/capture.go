package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/snapkit/domsvg/dom"
)

// ErrNoMatch is returned when the selector matches no element.
var ErrNoMatch = errors.New("browser: selector matched nothing")

// captureJS walks the selected element and reports, for every node, what
// the converter needs: attributes, offset box, computed style, live
// values and pixels. Foreign elements keep their namespace and the case
// of their local name. Images are drawn at their natural size; cropping to
// the rendered height happens on the Go side. Tainted canvases report no
// pixels.
const captureJS = `(selector) => {
	const root = document.querySelector(selector);
	if (!root) return "";
	const pixels = (canvas) => { try { return canvas.toDataURL("image/png", 1); } catch (e) { return ""; } };
	const walk = (n) => {
		if (n.nodeType === Node.TEXT_NODE || n.nodeType === Node.CDATA_SECTION_NODE) {
			return {type: "text", data: n.data};
		}
		if (n.nodeType !== Node.ELEMENT_NODE) {
			return {type: "comment", data: n.nodeType === Node.COMMENT_NODE ? n.data : ""};
		}
		const out = {type: "element", ns: n.namespaceURI || "", tag: n.localName, attrs: [], style: [], children: []};
		for (const a of n.attributes) out.attrs.push([a.name, a.value]);
		if (n instanceof HTMLElement) {
			out.width = n.offsetWidth;
			out.height = n.offsetHeight;
		} else {
			const r = n.getBoundingClientRect();
			out.width = r.width;
			out.height = r.height;
		}
		const cs = getComputedStyle(n);
		for (let i = 0; i < cs.length; i++) {
			const p = cs[i];
			out.style.push([p, cs.getPropertyValue(p), cs.getPropertyPriority(p)]);
		}
		if (n instanceof HTMLInputElement || n instanceof HTMLTextAreaElement) {
			out.value = n.value;
		} else if (n instanceof HTMLCanvasElement) {
			out.pixels = pixels(n);
		} else if (n instanceof HTMLImageElement) {
			out.naturalWidth = n.naturalWidth;
			out.renderedHeight = n.offsetHeight;
			if (n.complete && n.naturalWidth > 0) {
				const c = document.createElement("canvas");
				c.width = n.naturalWidth;
				c.height = n.naturalHeight;
				c.getContext("2d").drawImage(n, 0, 0);
				out.pixels = pixels(c);
			}
		}
		for (const c of n.childNodes) out.children.push(walk(c));
		return out;
	};
	return JSON.stringify(walk(root));
}`

// Capture snapshots the live state of the first element matching selector.
func (t *Tab) Capture(ctx context.Context, selector string) (*dom.Node, error) {
	res, err := t.Page.Context(ctx).Eval(captureJS, selector)
	if err != nil {
		return nil, fmt.Errorf("browser: capture %q: %w", selector, err)
	}
	raw := res.Value.Str()
	if raw == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, selector)
	}
	root, err := dom.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("browser: capture %q: %w", selector, err)
	}
	return root, nil
}
