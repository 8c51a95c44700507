package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NewTurnID tags one query turn for log correlation.
func NewTurnID() string {
	return uuid.NewString()
}

// PrettyPrint dumps a value as indented JSON, for debug output in the CLIs.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Error pretty printing")
		return
	}
	fmt.Println(string(b))
}
