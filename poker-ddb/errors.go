package pokerddb

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

// IsConditionalCheckFailed reports whether err is a failed condition on a
// conditional write.
func IsConditionalCheckFailed(err error) bool {
	if err == nil {
		return false
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		return true
	}
	return strings.Contains(err.Error(), dynamodb.ErrCodeConditionalCheckFailedException)
}
