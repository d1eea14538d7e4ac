package handler

import "github.com/gofiber/fiber/v2"

// Registrar is implemented by every handler that contributes routes to the
// HTTP app. The router collects registrars as a group and mounts them in
// order, so adding an endpoint means providing one more Registrar.
type Registrar interface {
	Routes(r fiber.Router)
}
