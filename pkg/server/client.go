package server

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
)

// ClientPath is where the preview client script is served.
const ClientPath = "/_way/client.js"

// clientJS forwards user events on elements with a hydration ID and swaps
// in the body markup the server sends back.
const clientJS = `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  function forward(e) {
    var el = e.target && e.target.closest ? e.target.closest("[data-hid]") : null;
    if (!el || ws.readyState !== 1) return;
    if (e.type === "submit") e.preventDefault();
    var msg = { type: "event", hid: el.getAttribute("data-hid"), event: e.type };
    if ("value" in el && (e.type === "input" || e.type === "change")) msg.value = el.value;
    if (el.type === "checkbox" || el.type === "radio") msg.checked = el.checked;
    ws.send(JSON.stringify(msg));
  }
  ["click", "input", "change", "submit", "keydown"].forEach(function (t) {
    document.addEventListener(t, forward, true);
  });
  ws.onmessage = function (m) {
    var msg = JSON.parse(m.data);
    if (msg.type === "html") document.body.innerHTML = msg.html;
    else if (msg.type === "reload") location.reload();
    else if (msg.type === "error") console.warn("[way]", msg.error);
  };
})();
`

var clientETag = func() string {
	sum := sha256.Sum256([]byte(clientJS))
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:]))
}()

func (s *Server) serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", clientETag)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	if etagMatches(r.Header.Get("If-None-Match"), clientETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(clientJS))
}

func etagMatches(ifNoneMatchHeader, etag string) bool {
	if ifNoneMatchHeader == "" || etag == "" {
		return false
	}
	if strings.TrimSpace(ifNoneMatchHeader) == "*" {
		return true
	}
	// Handle lists: If-None-Match: "abc", W/"def"
	for _, part := range strings.Split(ifNoneMatchHeader, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == etag {
			return true
		}
		if strings.HasPrefix(candidate, "W/") && strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
