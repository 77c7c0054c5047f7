package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("get object: %w", &types.NoSuchKey{})))
	assert.True(t, IsNotFound(&types.NoSuchBucket{}))
	assert.True(t, IsNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, IsNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, IsNotFound(errors.New("NoSuchKey")))
}
