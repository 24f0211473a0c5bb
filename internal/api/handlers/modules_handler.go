package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/osint-brain/backend/internal/modules"
)

type ModulesHandler struct {
	registry *modules.Registry
}

func NewModulesHandler(registry *modules.Registry) *ModulesHandler {
	return &ModulesHandler{registry: registry}
}

func (h *ModulesHandler) ListModules(c *fiber.Ctx) error {
	type moduleInfo struct {
		ID           string   `json:"id"`
		Capabilities []string `json:"capabilities"`
	}

	infos := make([]moduleInfo, 0, h.registry.Len())
	for _, id := range h.registry.IDs() {
		m, ok := h.registry.Get(id)
		if !ok {
			continue
		}
		caps := make([]string, 0, len(m.Capabilities()))
		for _, c := range m.Capabilities() {
			caps = append(caps, string(c))
		}
		infos = append(infos, moduleInfo{ID: id, Capabilities: caps})
	}

	return c.JSON(fiber.Map{
		"modules": infos,
		"count":   len(infos),
	})
}
