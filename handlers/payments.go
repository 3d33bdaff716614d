// handlers/payments.go
package handlers

import (
	"errors"

	"coin-miniapp-system/middleware"
	"coin-miniapp-system/models"
	"coin-miniapp-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, users *services.UserService, payments *services.PaymentService) {
	// 🔓 Catalog is public
	app.Get("/courses", func(c *fiber.Ctx) error {
		courses, err := payments.ListCourses()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load courses",
				"cause": err.Error(),
			})
		}
		return c.JSON(courses)
	})

	// 🔐 Invoices are scoped to the caller
	secured := app.Group("/payments", middleware.TelegramAuthMiddleware())

	secured.Post("/invoice", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}

		var req struct {
			Product    models.ProductType `json:"product"`
			ProductRef string             `json:"product_ref"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if req.Product == models.ProductCourse {
			owned, err := payments.HasCourse(user.ID, req.ProductRef)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
			}
			if owned {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "course already purchased"})
			}
		}

		invoice, err := payments.CreateInvoice(user, req.Product, req.ProductRef)
		if err != nil {
			if errors.Is(err, services.ErrUnknownProduct) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown product"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create invoice",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(invoice)
	})

	secured.Get("/:id", func(c *fiber.Ctx) error {
		user, err := currentUser(c, users)
		if user == nil {
			return err
		}
		invoice, err := payments.GetInvoice(user.ID, c.Params("id"))
		if err != nil {
			if errors.Is(err, services.ErrInvoiceNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invoice not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error", "cause": err.Error()})
		}
		return c.JSON(invoice)
	})
}
