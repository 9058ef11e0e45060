package validation

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

const inputKey = "validation.input"

// Handle returns a Fiber handler that evaluates chain against the request.
// On failure it answers 400 with every collected error and stops the
// pipeline; on success it stores the input for InputFrom and calls the next
// handler.
func Handle(chain Chain) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := readInput(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": []FieldError{{
					Type:     "field",
					Msg:      "Invalid JSON body",
					Location: Body,
				}},
			})
		}

		if errs := chain.Validate(in); len(errs) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": errs,
			})
		}

		c.Locals(inputKey, in)
		return c.Next()
	}
}

// InputFrom returns the input stored by Handle, reading it from the request
// when no validation ran.
func InputFrom(c *fiber.Ctx) Input {
	if in, ok := c.Locals(inputKey).(Input); ok {
		return in
	}
	in, _ := readInput(c)
	return in
}

// readInput decodes a JSON object body. Requests that are not JSON, or have
// no body, yield an empty body.
func readInput(c *fiber.Ctx) (Input, error) {
	in := Input{
		Body:   map[string]any{},
		Params: c.AllParams(),
	}

	raw := bytes.TrimSpace(c.Body())
	if len(raw) == 0 || !c.Is("json") {
		return in, nil
	}

	if err := json.Unmarshal(raw, &in.Body); err != nil {
		return in, err
	}
	if in.Body == nil {
		in.Body = map[string]any{}
	}
	return in, nil
}
