/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package requestfilter

// RulesVerifier holds an ordered slice of rules used to admit transactions.
// It is immutable once created and safe for concurrent use.
type RulesVerifier struct {
	rules []Rule
}

// NewRulesVerifier creates a RulesVerifier using the provided ordered list of Rules.
func NewRulesVerifier(rules []Rule) *RulesVerifier {
	return &RulesVerifier{
		rules: append([]Rule(nil), rules...),
	}
}

// Verify checks the transaction against the rules in order and returns the first failure.
func (rv *RulesVerifier) Verify(tx []byte) error {
	for _, rule := range rv.rules {
		if err := rule.Verify(tx); err != nil {
			return err
		}
	}
	return nil
}
