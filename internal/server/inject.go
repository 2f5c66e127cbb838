package server

import (
	"bytes"

	"golang.org/x/net/html"
)

// reloadScript is the snippet injected into served HTML. It reconnects with
// a small backoff so a server restart does not strand the page.
const reloadScript = `<script>
(function() {
	function connect() {
		var proto = location.protocol === "https:" ? "wss://" : "ws://";
		var ws = new WebSocket(proto + location.host + "/ws");
		ws.onmessage = function(ev) {
			if (ev.data === "reload") { location.reload(); }
		};
		ws.onclose = function() { setTimeout(connect, 1000); };
	}
	connect();
})();
</script>`

// InjectReloadScript inserts the live-reload script before the closing body
// tag. Documents without a body tag get the script appended at the end.
func InjectReloadScript(page []byte) []byte {
	tokenizer := html.NewTokenizer(bytes.NewReader(page))

	var out bytes.Buffer
	out.Grow(len(page) + len(reloadScript))
	injected := false

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.EndTagToken {
			if name, _ := tokenizer.TagName(); string(name) == "body" && !injected {
				out.WriteString(reloadScript)
				injected = true
			}
		}
		out.Write(tokenizer.Raw())
	}

	if !injected {
		out.WriteString(reloadScript)
	}
	return out.Bytes()
}
