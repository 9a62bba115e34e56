package httputil

import (
	"github.com/gofiber/fiber/v3"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// envelope is the shape of every response body, success or failure, per spec.md §6.
type envelope struct {
	Success          bool             `json:"success"`
	Data             any              `json:"data,omitempty"`
	Error            chitter.ErrorTag `json:"error,omitempty"`
	ValidationErrors []string         `json:"validationErrors,omitempty"`
}

// Success sends a 200 JSON response wrapping data as {success:true,data}.
func Success(c fiber.Ctx, data any) error {
	return c.JSON(envelope{Success: true, Data: data})
}

// SuccessStatus sends a JSON success response with a custom status code.
func SuccessStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

// Fail sends {success:false,error:<tag>} at HTTP 400, the status spec.md §6 assigns to every service/validation
// error.
func Fail(c fiber.Ctx, tag chitter.ErrorTag) error {
	return c.Status(fiber.StatusBadRequest).JSON(envelope{Success: false, Error: tag})
}

// FailValidation sends {success:false,error:"InvalidParameters",validationErrors:[...]} at HTTP 400.
func FailValidation(c fiber.Ctx, problems []string) error {
	return c.Status(fiber.StatusBadRequest).JSON(envelope{
		Success:          false,
		Error:            chitter.InvalidParameters,
		ValidationErrors: problems,
	})
}

// FailUnknown sends {success:false,error:"UnknownServerError"} at HTTP 500, reserved for exceptions that escaped
// every service-layer classification (spec.md §6).
func FailUnknown(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(envelope{Success: false, Error: chitter.UnknownServerError})
}

// FailErr inspects err with chitter.TagOf and sends the matching response: any TaggedError becomes its tag at 400;
// anything else becomes UnknownServerError at 500.
func FailErr(c fiber.Ctx, err error) error {
	tag := chitter.TagOf(err)
	if tag == chitter.UnknownServerError {
		return FailUnknown(c)
	}
	return Fail(c, tag)
}
