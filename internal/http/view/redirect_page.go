package view

import (
	"fmt"
	"html/template"
	"strings"
)

// RedirectPageData feeds the interstitial shown before a resolved redirect
// completes.
type RedirectPageData struct {
	TargetURL    string
	DelaySeconds int
}

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.DelaySeconds}};url={{.TargetURL}}">
<title>Redirecting...</title>
<style>
body { font-family: sans-serif; display: flex; flex-direction: column; align-items: center; margin-top: 20vh; color: #1e293b; }
small { color: #64748b; }
</style>
</head>
<body>
<h2>Redirecting...</h2>
<p>You will be redirected to your destination shortly.</p>
<small>Going to: {{.TargetURL}}</small>
</body>
</html>
`))

// RenderRedirectPage returns the interstitial HTML for the given data.
func RenderRedirectPage(data RedirectPageData) (string, error) {
	if data.DelaySeconds <= 0 {
		data.DelaySeconds = 1
	}
	var sb strings.Builder
	if err := redirectPage.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render redirect page: %w", err)
	}
	return sb.String(), nil
}
