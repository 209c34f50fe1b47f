package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/service"
	"github.com/rosterline/backstage/pkg/utils"
)

const (
	tiktokVerifierCookie = "tt_verifier"
	stateTokenDuration   = 15 * time.Minute
)

type AuthHandler struct {
	tt  service.TiktokService
	yt  service.YoutubeService
	cfg config.Config
}

func NewAuthHandler(tt service.TiktokService, yt service.YoutubeService, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		tt:  tt,
		yt:  yt,
		cfg: cfg,
	}
}

// TiktokAuthStart begins the authorization-code + PKCE flow. The verifier is
// kept in an encrypted httpOnly cookie until the callback.
func (h *AuthHandler) TiktokAuthStart(c *fiber.Ctx) error {
	artistID := c.Query("artist_id")
	if artistID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "artist_id is required",
		})
	}

	state, err := utils.GenerateStateToken(h.cfg.SecretKey, artistID, stateTokenDuration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to sign state",
		})
	}

	verifier, err := utils.GenerateRandomKey(32)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to generate verifier",
		})
	}

	encryptedVerifier, err := utils.Encrypt([]byte(verifier), []byte(h.cfg.SecretKey))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to protect verifier",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     tiktokVerifierCookie,
		Value:    encryptedVerifier,
		Path:     "/",
		MaxAge:   int(stateTokenDuration.Seconds()),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(h.tt.AuthURL(state, utils.PKCEChallenge(verifier)))
}

func (h *AuthHandler) TiktokAuthCallback(c *fiber.Ctx) error {
	artistID, err := h.artistFromState(c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate state",
		})
	}

	encryptedVerifier := c.Cookies(tiktokVerifierCookie)
	if encryptedVerifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing verifier cookie",
		})
	}

	verifier, err := utils.Decrypt(encryptedVerifier, []byte(h.cfg.SecretKey))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid verifier cookie",
		})
	}

	if err := h.tt.AuthCallback(c.Context(), artistID, c.Query("code"), verifier); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:   tiktokVerifierCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	redirectURL := fmt.Sprintf("%s/settings/connections", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) YoutubeAuthStart(c *fiber.Ctx) error {
	artistID := c.Query("artist_id")
	if artistID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "artist_id is required",
		})
	}

	state, err := utils.GenerateStateToken(h.cfg.SecretKey, artistID, stateTokenDuration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to sign state",
		})
	}

	return c.Redirect(h.yt.AuthURL(state))
}

func (h *AuthHandler) YoutubeAuthCallback(c *fiber.Ctx) error {
	artistID, err := h.artistFromState(c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to validate state",
		})
	}

	if err := h.yt.AuthCallback(c.Context(), artistID, c.Query("code")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/settings/connections", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) artistFromState(state string) (int64, error) {
	claims, err := utils.ValidateStateToken(h.cfg.SecretKey, state)
	if err != nil {
		return 0, err
	}

	artistID, err := strconv.ParseInt(claims.ArtistID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return artistID, nil
}
