package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"userapi/internal/model"
	"userapi/internal/repository"
	"userapi/internal/service"
)

func parseUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseUser(c *fiber.Ctx) (*model.User, error) {
	var u model.User
	if err := c.BodyParser(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func writeInvalidUser(c *fiber.Ctx, err error) error {
	return writeErrorDetails(c, fiber.StatusBadRequest, "VALIDATION_FAILED", "user failed validation", formatValidationError(err))
}

// GetUser returns a single user by ID.
//
//	@Summary	Get a user
//	@Tags		users
//	@Produce	json
//	@Param		id	path		string	true	"User ID (UUID)"
//	@Success	200	{object}	model.User
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Failure	500	{object}	errorPayload
//	@Router		/v1/user/{id} [get]
func GetUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseUserID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidID) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
			}
			return writeInternalError(c)
		}
		return c.JSON(u)
	}
}

// CreateUser stores a new user. created_at is assigned by the server.
//
//	@Summary	Create a user
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		user	body		model.User	true	"User"
//	@Success	201		{object}	model.User
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/v1/user [post]
func CreateUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseUser(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		u, err := svc.Create(c.UserContext(), in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidUser):
				return writeInvalidUser(c, err)
			case errors.Is(err, repository.ErrAlreadyExists):
				return writeError(c, fiber.StatusInternalServerError, "ALREADY_EXISTS", "user already exists")
			default:
				return writeInternalError(c)
			}
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// UpdateUser replaces an existing user, keeping its created_at.
//
//	@Summary	Update a user
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		user	body		model.User	true	"User"
//	@Success	200		{object}	model.User
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/v1/user [put]
func UpdateUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseUser(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		u, err := svc.Update(c.UserContext(), in)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidUser):
				return writeInvalidUser(c, err)
			case errors.Is(err, repository.ErrDoesNotExist):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "user not found")
			default:
				return writeInternalError(c)
			}
		}
		return c.JSON(u)
	}
}

// DeleteUser removes a user and answers with its ID as plain text. Deleting an absent user succeeds.
//
//	@Summary	Delete a user
//	@Tags		users
//	@Produce	plain
//	@Param		id	path		string	true	"User ID (UUID)"
//	@Success	200	{string}	string
//	@Failure	400	{object}	errorPayload
//	@Failure	500	{object}	errorPayload
//	@Router		/v1/user/{id} [delete]
func DeleteUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseUserID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		out, err := svc.Delete(c.UserContext(), id)
		if err != nil {
			return writeInternalError(c)
		}
		return c.Status(fiber.StatusOK).SendString(out.String())
	}
}
