// Package dynamoledger records privacy budget spends in DynamoDB.
//
// Each spend is written with a conditional put keyed by account and
// sequence number, so two processes charging the same account cannot both
// record the same spend. The losing writer gets numeric.ErrDuplicateSpend
// and its BudgetAccount is left unchanged.
//
// Table schema:
//   - Partition key: account (string)
//   - Sort key: sequence (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name genohdc-spends \
//	  --attribute-definitions AttributeName=account,AttributeType=S AttributeName=sequence,AttributeType=N \
//	  --key-schema AttributeName=account,KeyType=HASH AttributeName=sequence,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamoledger
