package handler

import "github.com/gofiber/fiber/v2"

// DocsHandler serves the OpenAPI spec and a Swagger UI page for it.
type DocsHandler struct{}

// NewDocsHandler creates the handler for API documentation endpoints.
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

var _ Registrar = (*DocsHandler)(nil)

// Routes mounts the documentation endpoints.
func (h *DocsHandler) Routes(r fiber.Router) {
	r.Get("/openapi.yaml", h.spec)
	r.Get("/docs", h.ui)
}

func (h *DocsHandler) spec(c *fiber.Ctx) error {
	c.Type("yaml")
	return c.SendFile("openapi.yaml")
}

func (h *DocsHandler) ui(c *fiber.Ctx) error {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
	return c.Type("html").SendString(html)
}
