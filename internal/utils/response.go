package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

const (
	defaultSuccessMessage = "success"
	defaultErrorMessage   = "error"
)

// SendSuccess writes a 200 envelope.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus writes a success envelope with the given status, e.g. 201 for issued career tokens.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Success: true, Data: data, Message: message})
}

// OK writes a 200 envelope carrying meta, used by paginated history endpoints.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: message, Meta: meta})
}

// SendError writes an error envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail writes an error envelope with machine readable details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Message: message, Details: details})
}

// Retryable writes an error envelope whose details tell the client the same request may succeed
// if sent again. Callers' details are copied, never mutated.
func Retryable(c *fiber.Ctx, status int, message string, details fiber.Map) error {
	merged := make(fiber.Map, len(details)+1)
	for key, value := range details {
		merged[key] = value
	}
	merged["retry"] = true
	return Fail(c, status, message, merged)
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	if body.Message == "" {
		body.Message = defaultErrorMessage
		if body.Success {
			body.Message = defaultSuccessMessage
		}
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
		if body.Success {
			status = fiber.StatusOK
		}
	}
	return c.Status(status).JSON(body)
}
