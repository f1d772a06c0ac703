package notify

const emailHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Headline}}</title>
  <style>
    body {
      margin: 0;
      padding: 24px;
      background-color: #f3f4f6;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      color: #111827;
      line-height: 1.5;
    }

    .container {
      max-width: 640px;
      margin: 0 auto;
      background: #ffffff;
      border-radius: 8px;
      border: 1px solid #e5e7eb;
      overflow: hidden;
    }

    .header {
      padding: 20px 24px;
      background: linear-gradient(135deg, #1b2838 0%, #2a475e 100%);
      color: #ffffff;
    }

    .label {
      font-size: 12px;
      font-weight: 600;
      text-transform: uppercase;
      letter-spacing: 0.08em;
      opacity: 0.8;
      margin-bottom: 4px;
    }

    .headline {
      font-size: 22px;
      font-weight: 700;
    }

    .date {
      margin-top: 6px;
      font-size: 13px;
      opacity: 0.85;
    }

    .section {
      padding: 16px 24px;
      border-top: 1px solid #f3f4f6;
      font-size: 14px;
    }

    .summary-list {
      margin: 0;
      padding-left: 20px;
    }

    .summary-list li {
      margin-bottom: 6px;
      padding-left: 4px;
    }

    .cta-button {
      display: inline-block;
      margin-top: 12px;
      padding: 10px 20px;
      font-size: 14px;
      font-weight: 600;
      color: #ffffff !important;
      background: #2a475e;
      border-radius: 6px;
      text-decoration: none;
    }

    .footer {
      padding: 16px 24px;
      font-size: 12px;
      color: #9ca3af;
      text-align: center;
      background: #f9fafb;
      border-top: 1px solid #f3f4f6;
    }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <div class="label">{{.Label}}</div>
      <div class="headline">{{.Headline}}</div>
      {{if .Date}}<div class="date">📅 {{.Date}}</div>{{end}}
    </div>

    <div class="section">
      {{if .Bullets}}
      <ul class="summary-list">
        {{range .Bullets}}
        <li>{{.}}</li>
        {{end}}
      </ul>
      {{else if .Body}}
      <p>{{.Body}}</p>
      {{else}}
      <p>No summary available.</p>
      {{end}}
      <a href="{{.Link}}" class="cta-button" target="_blank" rel="noopener">
        Read on counter-strike.net →
      </a>
    </div>

    <div class="footer">
      Sent by cs2news
    </div>
  </div>
</body>
</html>`
