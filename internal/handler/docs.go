package handler

import (
	"bytes"
	"html/template"
	"net/http"
)

func ServeSpec(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(spec)
	}
}

// ServeDocs renders Swagger UI for the embedded document. Tokens entered in
// the UI survive reloads, and expense posts get a fresh Idempotency-Key when
// the caller leaves it empty.
func ServeDocs(title, version string) http.HandlerFunc {
	var buf bytes.Buffer
	err := docsTemplate.Execute(&buf, struct {
		Title   string
		Version string
	}{title, version})
	if err != nil {
		panic("docs template: " + err.Error())
	}
	page := buf.Bytes()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}} {{.Version}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
      persistAuthorization: true,
      displayRequestDuration: true,
      docExpansion: "list",
      requestInterceptor: function (req) {
        if (req.method === "POST" && req.url.endsWith("/api/v1/ledger/transactions") &&
            !req.headers["Idempotency-Key"]) {
          req.headers["Idempotency-Key"] = crypto.randomUUID();
        }
        return req;
      }
    });
  </script>
</body>
</html>`))
