package zone

import "text/template"

// proxyTemplate is the per-domain Caddy vhost. The site serves the user's
// public_html with the certificate the issuance script placed on disk;
// Caddy's own ACME machinery is deliberately bypassed.
const proxyTemplate = `{{.Domain}} {
	root * {{.DocRoot}}
	file_server
	tls {{.CertFile}} {{.KeyFile}}
}
`

var proxyTmpl = template.Must(template.New("proxy").Parse(proxyTemplate))

// ProxyData feeds the Caddy fragment template.
type ProxyData struct {
	Domain   string
	DocRoot  string
	CertFile string
	KeyFile  string
}

// RenderProxy renders the Caddy vhost fragment for data.
func RenderProxy(data ProxyData) (string, error) {
	return render(proxyTmpl, data)
}
