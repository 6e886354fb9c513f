package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// strVal wraps a string as a DynamoDB attribute value.
func strVal(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

// boolVal wraps a bool as a DynamoDB attribute value.
func boolVal(value bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: value}
}
