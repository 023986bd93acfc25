package transcript

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ticket #{{.Header.TicketID}} transcript</title>
<style>
body { font-family: sans-serif; background: #313338; color: #dbdee1; margin: 0; padding: 24px; }
header { border-bottom: 1px solid #4e5058; margin-bottom: 16px; padding-bottom: 12px; }
dl { display: grid; grid-template-columns: max-content auto; gap: 4px 12px; margin: 8px 0; }
dt { color: #949ba4; }
.message { padding: 6px 0; }
.author { font-weight: bold; color: #f2f3f5; }
.bot { background: #5865f2; color: #fff; border-radius: 3px; font-size: 10px; padding: 1px 4px; margin-left: 4px; }
.timestamp { color: #949ba4; font-size: 12px; margin-left: 8px; }
.embed { border-left: 4px solid #5865f2; background: #2b2d31; padding: 6px 10px; margin: 4px 0; }
.attachment a { color: #00a8fc; }
</style>
</head>
<body>
<header>
<h1>Ticket #{{.Header.TicketID}}</h1>
<dl>
<dt>Kind</dt><dd>{{.Header.Kind}}</dd>
<dt>Opened by</dt><dd>{{name .Names .Header.CreatorRef}}</dd>
{{- with time .Header.OpenedAt}}
<dt>Opened at</dt><dd>{{.}}</dd>
{{- end}}
{{- with .Header.ClaimedBy}}
<dt>Claimed by</dt><dd>{{name $.Names .}}</dd>
{{- end}}
{{- with .Header.ClosedBy}}
<dt>Closed by</dt><dd>{{name $.Names .}}</dd>
{{- end}}
{{- with time .Header.ClosedAt}}
<dt>Closed at</dt><dd>{{.}}</dd>
{{- end}}
{{- with .Header.CloseReason}}
<dt>Reason</dt><dd>{{.}}</dd>
{{- end}}
{{- range .Fields}}
<dt>{{.Key}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
</header>
<main>
{{- range .Messages}}
<section class="message">
<div><span class="author">{{.Author}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="timestamp">{{.Timestamp}}</span></div>
<div class="content">{{.Body}}</div>
{{- range .Embeds}}
<div class="embed">{{with .Title}}<strong>{{.}}</strong><br>{{end}}{{.Description}}</div>
{{- end}}
{{- range .Attachments}}
<div class="attachment"><a href="{{.URL}}">{{.FileName}}</a></div>
{{- end}}
</section>
{{- else}}
<p>No messages.</p>
{{- end}}
</main>
</body>
</html>
`
