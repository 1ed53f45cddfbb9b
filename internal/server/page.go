package server

import (
	"html/template"
	"net/http"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>skywall</title>
<style>
body { font-family: sans-serif; max-width: 640px; margin: 2em auto; }
label { display: block; margin-top: 0.8em; }
input { width: 100%; padding: 0.3em; }
button { margin-top: 1em; padding: 0.5em 1.5em; }
#events { font-family: monospace; white-space: pre-wrap; background: #f4f4f4; padding: 1em; margin-top: 1em; }
</style>
</head>
<body>
<h1>skywall follower blocker</h1>
<p>Scan followers of a seed account, filter by follows count, review, then block.</p>

<label>Identifier <input id="identifier" placeholder="yourname.bsky.social"></label>
<label>App password <input id="password" type="password"></label>
<label>Seed account <input id="seed" placeholder="defaults to your own account"></label>
<label>Follows-count threshold <input id="threshold" type="number" value="{{.Threshold}}" min="1000" max="20000"></label>
<label>Max followers to scan (0 = all) <input id="max" type="number" value="0"></label>

<button onclick="scan()">Scan</button>
<span id="eligible"></span>

<div id="confirm" style="display:none">
  <label>How many to block <input id="count" type="number" value="1"></label>
  <button onclick="execute()">Block now</button>
</div>

<p><a href="/log.csv">Download block log</a></p>
<div id="events"></div>

<script>
const events = document.getElementById('events');
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
ws.onmessage = (m) => { events.textContent += m.data + '\n'; };

async function scan() {
  const resp = await fetch('/api/scan', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({
      identifier: document.getElementById('identifier').value,
      appPassword: document.getElementById('password').value,
      seedActor: document.getElementById('seed').value,
      threshold: parseInt(document.getElementById('threshold').value, 10),
      maxFollowers: parseInt(document.getElementById('max').value, 10),
    }),
  });
  const body = await resp.json();
  if (!resp.ok) { events.textContent += 'error: ' + body.error + '\n'; return; }
  document.getElementById('eligible').textContent = body.eligible ? body.eligible.length + ' eligible' : '0 eligible';
  if (body.eligible && body.eligible.length > 0) {
    document.getElementById('count').max = body.eligible.length;
    document.getElementById('confirm').style.display = 'block';
  }
}

async function execute() {
  const resp = await fetch('/api/execute', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({count: parseInt(document.getElementById('count').value, 10)}),
  });
  const body = await resp.json();
  if (!resp.ok) { events.textContent += 'error: ' + body.error + '\n'; return; }
  events.textContent += 'finished: ' + body.succeeded + ' blocked\n';
}
</script>
</body>
</html>`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	indexTmpl.Execute(w, map[string]any{"Threshold": s.cfg.Threshold})
}
