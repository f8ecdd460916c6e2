package handler

import (
	"tubequiz/internal/middleware"
	"tubequiz/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMyProfile retrieves the profile of the currently authenticated user.
// @Summary Get My Profile
// @Tags users
// @Security CookieAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /users/me/ [get]
func (h *UserHandler) GetMyProfile(c *fiber.Ctx) error {
	profile, err := h.userService.GetUserProfile(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}
