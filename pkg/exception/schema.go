package exception

import "github.com/yanun0323/errors"

// Schema errors
var (
	ErrSchemaEnvelope  = errors.New("schema: malformed envelope")
	ErrSchemaPayload   = errors.New("schema: malformed payload")
	ErrSchemaTimestamp = errors.New("schema: unrecognized timestamp")
	ErrSchemaSnowflake = errors.New("schema: invalid snowflake")
)
