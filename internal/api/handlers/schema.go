package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"chart-race/internal/render"
)

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var (
	messageSchema = generateSchema[render.Message]()
	commandSchema = generateSchema[render.ClientCommand]()
)

// GetMessageSchema documents what the websocket feed sends.
func GetMessageSchema(c *gin.Context) {
	c.JSON(http.StatusOK, messageSchema)
}

// GetCommandSchema documents what a websocket client may send back.
func GetCommandSchema(c *gin.Context) {
	c.JSON(http.StatusOK, commandSchema)
}
