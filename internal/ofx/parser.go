// Package ofx turns OFX/QFX bank and credit card statements into ledger entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/eling/internal/model"
)

// DefaultCategory is used for statement lines whose type carries no category hint.
const DefaultCategory = "Uncategorized"

// typeCategories maps OFX transaction type names to ledger categories.
var typeCategories = map[string]string{
	"INT":    "Interest",
	"DIV":    "Dividends",
	"FEE":    "Bank Fees",
	"SRVCHG": "Bank Fees",
	"ATM":    "Cash Withdrawal",
}

// payeePrefixes are card and transfer boilerplate that banks put before the
// merchant name.
var payeePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"DEBIT PURCHASE ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"ACH DEBIT ",
	"KARTU DEBIT ",
	"TRSF E-BANKING DB ",
	"TRSF E-BANKING CR ",
	"BI-FAST DB ",
	"BI-FAST CR ",
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	postingDate   = regexp.MustCompile(`^\d{2}/\d{2} `)
)

// Statement is one bank or credit card statement inside an OFX file.
type Statement struct {
	AccountID string
	Currency  string
	Entries   []model.TransactionInput
}

// Parser converts statements into transaction drafts.
type Parser struct {
	account         string
	defaultCategory string
}

// NewParser creates a parser that books every line into account. An empty
// account books each statement into an account named after its OFX account id.
func NewParser(account, defaultCategory string) *Parser {
	defaultCategory = strings.TrimSpace(defaultCategory)
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}
	return &Parser{account: strings.TrimSpace(account), defaultCategory: defaultCategory}
}

// ParseStatements reads every statement in an OFX/QFX document. Lines that
// move no money are dropped.
func (p *Parser) ParseStatements(ctx context.Context, r io.Reader) ([]Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := decode(r)
	if err != nil {
		return nil, err
	}

	var stmts []Statement
	for _, msg := range resp.Bank {
		if s, ok := msg.(*ofxgo.StatementResponse); ok {
			stmts = append(stmts, p.statement(string(s.BankAcctFrom.AcctID), s.CurDef.String(), s.BankTranList))
		}
	}
	for _, msg := range resp.CreditCard {
		if s, ok := msg.(*ofxgo.CCStatementResponse); ok {
			stmts = append(stmts, p.statement(string(s.CCAcctFrom.AcctID), s.CurDef.String(), s.BankTranList))
		}
	}
	return stmts, nil
}

// ParseFile flattens ParseStatements into one list of drafts, debits as
// expenses and credits as income.
func (p *Parser) ParseFile(ctx context.Context, r io.Reader) ([]model.TransactionInput, error) {
	stmts, err := p.ParseStatements(ctx, r)
	if err != nil {
		return nil, err
	}

	var inputs []model.TransactionInput
	for _, s := range stmts {
		slog.Debug("Parsed OFX statement", "account_id", s.AccountID, "currency", s.Currency, "transactions", len(s.Entries))
		inputs = append(inputs, s.Entries...)
	}
	slog.Info("Parsed OFX file", "statements", len(stmts), "total_transactions", len(inputs))
	return inputs, nil
}

// decode repairs the usual SGML sloppiness of bank exports and hands the
// result to ofxgo.
func decode(r io.Reader) (*ofxgo.Response, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	content := strings.TrimLeft(string(raw), " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	resp, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

func (p *Parser) statement(acctID, currency string, list *ofxgo.TransactionList) Statement {
	s := Statement{AccountID: acctID, Currency: currency}
	if list == nil {
		return s
	}

	account := p.account
	if account == "" {
		account = acctID
	}

	for _, line := range list.Transactions {
		in, ok := p.entry(line, account)
		if !ok {
			slog.Debug("Skipping zero-amount statement line", "fitid", string(line.FiTID))
			continue
		}
		s.Entries = append(s.Entries, in)
	}
	return s
}

// entry converts one statement line, reporting false when it moves no money.
func (p *Parser) entry(line ofxgo.Transaction, account string) (model.TransactionInput, bool) {
	amount, err := decimal.NewFromString(line.TrnAmt.FloatString(2))
	if err != nil || amount.IsZero() {
		return model.TransactionInput{}, false
	}

	kind := model.KindIncome
	if amount.IsNegative() {
		kind = model.KindExpense
	}

	category, ok := typeCategories[line.TrnType.String()]
	if !ok {
		category = p.defaultCategory
	}

	return model.TransactionInput{
		Date:       line.DtPosted.Time,
		Amount:     amount.Abs(),
		Account:    account,
		Category:   category,
		Kind:       kind,
		Note:       payeeName(line),
		ExternalID: string(line.FiTID),
	}, true
}

// payeeName picks the counterparty for the transaction note: PAYEE when
// present, else NAME (or MEMO when NAME says nothing) without card boilerplate.
func payeeName(line ofxgo.Transaction) string {
	if line.Payee != nil && line.Payee.Name != "" {
		return string(line.Payee.Name)
	}

	name := strings.TrimSpace(string(line.Name))
	if line.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(line.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range payeePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(postingDate.ReplaceAllString(name, ""))
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE", "TRANSFER":
		return true
	}
	return false
}
