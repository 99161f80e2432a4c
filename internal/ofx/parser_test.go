package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/eling/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>IDR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-45000.00
<FITID>2024011501
<NAME>POS PURCHASE KOPI KENANGAN
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-325500.50
<FITID>2024012001
<NAME>DEBIT
<MEMO>Superindo Cikini
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125090000[0:GMT]
<TRNAMT>8500000.00
<FITID>2024012501
<NAME>PAYROLL PT MAJU JAYA
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>1250.75
<FITID>2024013101
<NAME>BUNGA
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>-6500.00
<FITID>2024013102
<NAME>BIAYA ADMIN
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>0.00
<FITID>2024013103
<NAME>AUTHORIZATION HOLD
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>IDR
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 5},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser("BCA", "")
			inputs, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, inputs, tt.expectedCount)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser("BCA", "Lain-lain")
	inputs, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, inputs, 5)

	coffee := inputs[0]
	assert.Equal(t, "2024011501", coffee.ExternalID)
	assert.Equal(t, "BCA", coffee.Account)
	assert.Equal(t, model.KindExpense, coffee.Kind)
	assert.Equal(t, "45000", coffee.Amount.String())
	assert.Equal(t, "KOPI KENANGAN", coffee.Note)
	assert.Equal(t, "Lain-lain", coffee.Category)
	assert.Equal(t, "2024-01-15", coffee.Date.Format(model.DateLayout))

	groceries := inputs[1]
	assert.Equal(t, "Superindo Cikini", groceries.Note, "generic NAME falls back to MEMO")
	assert.Equal(t, "325500.5", groceries.Amount.String())

	salary := inputs[2]
	assert.Equal(t, model.KindIncome, salary.Kind)
	assert.Equal(t, "8500000", salary.Amount.String())

	interest := inputs[3]
	assert.Equal(t, "Interest", interest.Category)
	assert.Equal(t, model.KindIncome, interest.Kind)

	fee := inputs[4]
	assert.Equal(t, "Bank Fees", fee.Category)
	assert.Equal(t, model.KindExpense, fee.Kind)
	assert.Equal(t, "6500", fee.Amount.String())
}

func TestEntryCategoryFromTransactionType(t *testing.T) {
	tests := []struct {
		trnType  string
		expected string
	}{
		{trnType: "INT", expected: "Interest"},
		{trnType: "DIV", expected: "Dividends"},
		{trnType: "FEE", expected: "Bank Fees"},
		{trnType: "SRVCHG", expected: "Bank Fees"},
		{trnType: "ATM", expected: "Cash Withdrawal"},
		{trnType: "DEBIT", expected: "Lain-lain"},
		{trnType: "POS", expected: "Lain-lain"},
	}

	parser := NewParser("BCA", "Lain-lain")
	for _, tt := range tests {
		t.Run(tt.trnType, func(t *testing.T) {
			var line ofxgo.Transaction
			require.NoError(t, line.TrnType.FromString(tt.trnType))
			_, ok := line.TrnAmt.SetString("-20.00")
			require.True(t, ok)
			line.FiTID = "T1"

			in, recorded := parser.entry(line, "BCA")
			require.True(t, recorded)
			assert.Equal(t, tt.expected, in.Category)
			assert.Equal(t, model.KindExpense, in.Kind)
		})
	}
}

func TestParseCreditCardUsesStatementAccount(t *testing.T) {
	parser := NewParser("", "")
	inputs, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	for _, in := range inputs {
		assert.Equal(t, "4111111111111111", in.Account)
		assert.Equal(t, DefaultCategory, in.Category)
		assert.Equal(t, model.KindExpense, in.Kind)
	}
	assert.Equal(t, "CC2024011001", inputs[0].ExternalID)
	assert.Equal(t, "45.99", inputs[0].Amount.String())
}

func TestParseFileHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser("BCA", "").ParseFile(ctx, strings.NewReader(sampleBankOFX))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPayeeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		memo     string
		payee    string
		expected string
	}{
		{name: "remove POS prefix", input: "POS PURCHASE INDOMARET", expected: "INDOMARET"},
		{name: "remove DEBIT CARD prefix", input: "DEBIT CARD PURCHASE ALFAMART", expected: "ALFAMART"},
		{name: "keep clean name", input: "NETFLIX.COM", expected: "NETFLIX.COM"},
		{name: "trim whitespace", input: "  TOKOPEDIA  ", expected: "TOKOPEDIA"},
		{name: "strip posting date", input: "01/15 GRAB*FOOD", expected: "GRAB*FOOD"},
		{name: "generic name uses memo", input: "PAYMENT", memo: "PLN Prabayar", expected: "PLN Prabayar"},
		{name: "payee wins", input: "POS PURCHASE X", payee: "Shopee", expected: "Shopee"},
		{name: "remove e-banking transfer", input: "TRSF E-BANKING DB 1501/FTSCY/WS95031 KOPI", expected: "1501/FTSCY/WS95031 KOPI"},
		{name: "remove BI-FAST prefix", input: "BI-FAST CR ANDI WIJAYA", expected: "ANDI WIJAYA"},
		{name: "generic transfer uses memo", input: "TRANSFER", memo: " Arisan ", expected: "Arisan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			if tt.payee != "" {
				tx.Payee = &ofxgo.Payee{Name: ofxgo.String(tt.payee)}
			}
			assert.Equal(t, tt.expected, payeeName(tx))
		})
	}
}

func TestParseStatements(t *testing.T) {
	parser := NewParser("", "")

	stmts, err := parser.ParseStatements(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "1234567890", stmts[0].AccountID)
	assert.Equal(t, "IDR", stmts[0].Currency)
	assert.Len(t, stmts[0].Entries, 5)

	stmts, err = parser.ParseStatements(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, "4111111111111111", stmts[0].AccountID)
	assert.Len(t, stmts[0].Entries, 2)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := NewParser("BCA", "").ParseFile(context.Background(), strings.NewReader("not a statement"))
	require.Error(t, err)
}
