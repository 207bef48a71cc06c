// Package chat drives product entry and sales through a turn based
// conversation.
package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughstock/internal/catalog"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
	"github.com/talkincode/toughstock/pkg/common"
	"go.uber.org/zap"
)

// DefaultListLimit caps the rows shown by the stock command.
const DefaultListLimit = 10

// Ledger is the part of the stock ledger the interpreter uses.
type Ledger interface {
	AddProduct(ctx context.Context, fields stock.ProductFields) (int64, error)
	GetAll(ctx context.Context, includeZero bool) ([]domain.Product, error)
	Sell(ctx context.Context, id int64, qty int) (*domain.Product, error)
}

type Interpreter struct {
	ledger    Ledger
	brands    *catalog.Catalog
	styles    *catalog.Catalog
	types     *catalog.Catalog
	listLimit int
}

func NewInterpreter(ledger Ledger, listLimit int) *Interpreter {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &Interpreter{
		ledger:    ledger,
		brands:    catalog.BrandCatalog,
		styles:    catalog.StyleCatalog,
		types:     catalog.TypeCatalog,
		listLimit: listLimit,
	}
}

const helpText = `Comandos disponíveis:
• adicionar produto - cadastra um novo item
• estoque ou estoque [marca] - lista os itens
• vender, vender [ID] ou vender [ID] [qtd] - registra uma venda
• cancelar - interrompe qualquer operação`

// Handle processes one user turn, records it and the reply in the session
// history and returns the reply.
func (it *Interpreter) Handle(ctx context.Context, sess *ChatSession, input string) string {
	input = strings.TrimSpace(input)
	sess.Append(RoleUser, input)
	reply := it.dispatch(ctx, sess, input)
	sess.Append(RoleAssistant, reply)
	return reply
}

func (it *Interpreter) dispatch(ctx context.Context, sess *ChatSession, input string) string {
	cmd := common.Fold(input)
	if cmd == "cancelar" || cmd == "cancel" {
		sess.Reset()
		return "Operação cancelada. Como posso ajudar? (ajuda)"
	}

	switch sess.Step {
	case StepAwaitingName:
		return it.onName(sess, input)
	case StepAwaitingPrice:
		return it.onPrice(sess, input)
	case StepAwaitingQty:
		return it.onQuantity(sess, input)
	case StepAwaitingBrand:
		return it.onCategory(sess, input, it.brands, StepAwaitingStyle)
	case StepAwaitingStyle:
		return it.onCategory(sess, input, it.styles, StepAwaitingType)
	case StepAwaitingType:
		return it.onCategory(sess, input, it.types, StepAwaitingExpiry)
	case StepAwaitingExpiry:
		return it.onExpiry(ctx, sess, input)
	case StepAwaitingSellID:
		return it.onSellID(ctx, sess, input)
	}

	sess.Reset()
	switch {
	case cmd == "":
		return "Digite algo para eu ajudar! (ajuda)"
	case strings.Contains(cmd, "ajuda") || cmd == "help":
		return helpText
	case strings.Contains(cmd, "adicionar produto") || cmd == "add product":
		sess.Step = StepAwaitingName
		return "Novo produto. Qual o nome?"
	case hasCommand(cmd, "vender") || hasCommand(cmd, "sell"):
		return it.onSellCommand(ctx, sess, strings.Fields(input)[1:])
	case hasCommand(cmd, "estoque") || hasCommand(cmd, "stock"):
		return it.listStock(ctx, strings.Join(strings.Fields(input)[1:], " "))
	}
	return "Não entendi. Digite ajuda para ver os comandos."
}

func hasCommand(cmd, word string) bool {
	return cmd == word || strings.HasPrefix(cmd, word+" ")
}

func (it *Interpreter) onName(sess *ChatSession, input string) string {
	name := common.Title(input)
	if name == "" {
		return "Nome inválido. Digite novamente:"
	}
	sess.Pending.Name = name
	sess.Step = StepAwaitingPrice
	return fmt.Sprintf("Nome: %s. Agora o preço? (ex: 59,90)", name)
}

func (it *Interpreter) onPrice(sess *ChatSession, input string) string {
	price, ok := ParsePrice(input)
	if !ok {
		return "Preço deve ser maior que zero. Ex: 59.90 ou 45,00:"
	}
	sess.Pending.Price = price.InexactFloat64()
	sess.Step = StepAwaitingQty
	return fmt.Sprintf("Preço: R$ %s. Quantidade inicial?", price.StringFixed(2))
}

func (it *Interpreter) onQuantity(sess *ChatSession, input string) string {
	qty, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || qty < 0 {
		return "Quantidade deve ser um número inteiro não negativo:"
	}
	sess.Pending.Quantity = qty
	sess.Step = StepAwaitingBrand
	return fmt.Sprintf("Quantidade: %d un. Escolha a marca: %s...", qty, strings.Join(it.brands.Names()[:5], ", "))
}

func (it *Interpreter) onCategory(sess *ChatSession, input string, cat *catalog.Catalog, next Step) string {
	name, candidates, ok := cat.Match(input)
	if !ok {
		if len(candidates) > 1 {
			return fmt.Sprintf("Várias opções de %s combinam: %s. Digite o nome completo ou cancelar.",
				cat.Name(), strings.Join(candidates, ", "))
		}
		names := cat.Names()
		if len(names) > 5 {
			names = names[:5]
		}
		return fmt.Sprintf("Opção de %s inválida. Tente: %s... ou cancelar", cat.Name(), strings.Join(names, ", "))
	}
	switch sess.Step {
	case StepAwaitingBrand:
		sess.Pending.Brand = name
	case StepAwaitingStyle:
		sess.Pending.Style = name
	case StepAwaitingType:
		sess.Pending.Type = name
	}
	sess.Step = next
	switch next {
	case StepAwaitingStyle:
		return fmt.Sprintf("Marca: %s. Agora o estilo? (Perfumaria, Skincare...)", name)
	case StepAwaitingType:
		return fmt.Sprintf("Estilo: %s. Qual o tipo específico?", name)
	default:
		return fmt.Sprintf("Tipo: %s. Validade (DD/MM/AAAA) ou não:", name)
	}
}

func (it *Interpreter) onExpiry(ctx context.Context, sess *ChatSession, input string) string {
	expiry, ok := ParseExpiry(input)
	if !ok {
		return "Data inválida. Use DD/MM/AAAA ou não:"
	}
	pending := sess.Pending
	// the flow ends here whatever the ledger answers
	sess.Reset()

	id, err := it.ledger.AddProduct(ctx, stock.ProductFields{
		Name:       pending.Name,
		Price:      pending.Price,
		Quantity:   pending.Quantity,
		Brand:      pending.Brand,
		Style:      pending.Style,
		Type:       pending.Type,
		ExpiryDate: expiry,
	})
	if err != nil {
		zap.L().Warn("chat add product failed", zap.String("namespace", "chat"),
			zap.String("username", sess.Username), zap.Error(err))
		return "Erro ao salvar: " + common.Truncate(err.Error(), 100)
	}
	return fmt.Sprintf("%s adicionado! ID: %d", pending.Name, id)
}

func (it *Interpreter) onSellCommand(ctx context.Context, sess *ChatSession, args []string) string {
	if len(args) > 0 {
		if id, qty, ok := parseSellArgs(args); ok {
			return it.sell(ctx, sess, id, qty)
		}
		sess.Step = StepAwaitingSellID
		return "ID inválido. Digite apenas o número:"
	}
	sess.Step = StepAwaitingSellID
	return "Venda. Digite o ID do produto:"
}

func (it *Interpreter) onSellID(ctx context.Context, sess *ChatSession, input string) string {
	id, qty, ok := parseSellArgs(strings.Fields(input))
	if !ok {
		return "ID inválido. Digite apenas o número:"
	}
	return it.sell(ctx, sess, id, qty)
}

func (it *Interpreter) sell(ctx context.Context, sess *ChatSession, id int64, qty int) string {
	sess.Reset()
	p, err := it.ledger.Sell(ctx, id, qty)
	if err != nil {
		var ise *domain.InsufficientStockError
		switch {
		case errors.As(err, &ise) && ise.Missing:
			return fmt.Sprintf("Produto %d não encontrado.", id)
		case ise != nil:
			return fmt.Sprintf("Estoque insuficiente para o ID %d (pedido %d, disponível %d).", id, ise.Requested, ise.Available)
		case domain.KindOf(err) == domain.KindValidation:
			return "Quantidade inválida para venda."
		}
		zap.L().Error("chat sell failed", zap.String("namespace", "chat"), zap.Int64("id", id), zap.Error(err))
		return "Erro na venda. Verifique o ID e o estoque."
	}
	if p.Quantity == 0 {
		return fmt.Sprintf("Venda do ID %d registrada! %s agora está esgotado.", id, p.Name)
	}
	return fmt.Sprintf("Venda do ID %d registrada! Restam %d un de %s.", id, p.Quantity, p.Name)
}

func (it *Interpreter) listStock(ctx context.Context, brand string) string {
	brand = strings.TrimSpace(brand)
	rows, err := it.ledger.GetAll(ctx, brand != "")
	if err != nil {
		zap.L().Error("chat stock listing failed", zap.String("namespace", "chat"), zap.Error(err))
		return "Erro ao consultar estoque."
	}
	if brand != "" {
		want := common.Fold(brand)
		if name, _, ok := it.brands.Match(brand); ok {
			want = common.Fold(name)
		}
		filtered := rows[:0]
		for _, p := range rows {
			if common.Fold(p.Brand) == want {
				filtered = append(filtered, p)
			}
		}
		rows = filtered
		if len(rows) == 0 {
			return fmt.Sprintf("Nenhum item da marca %s.", brand)
		}
	} else if len(rows) == 0 {
		return "Estoque vazio no momento."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Estoque (%d itens):\n", len(rows))
	for i, p := range rows {
		if i == it.listLimit {
			break
		}
		fmt.Fprintf(&b, "• ID %d %s | %dun | R$ %s", p.ID, common.Truncate(p.Name, 30), p.Quantity,
			decimal.NewFromFloat(p.Price).StringFixed(2))
		if p.Quantity == 0 {
			b.WriteString(" | esgotado")
		}
		b.WriteString("\n")
	}
	if len(rows) > it.listLimit {
		fmt.Fprintf(&b, "...e mais %d itens.", len(rows)-it.listLimit)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParsePrice accepts "59,90", "59.90", "1.234,56" and an optional "R$"
// prefix. Only positive values are accepted.
func ParsePrice(input string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(input)
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// ParseExpiry accepts DD/MM/YYYY or a none sentinel. A nil date with ok
// set means no expiry.
func ParseExpiry(input string) (*time.Time, bool) {
	switch common.Fold(input) {
	case "", "nao", "none":
		return nil, true
	}
	t, err := time.Parse("02/01/2006", strings.TrimSpace(input))
	if err != nil {
		return nil, false
	}
	return &t, true
}

func parseSellArgs(args []string) (int64, int, bool) {
	if len(args) == 0 || len(args) > 2 {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, false
	}
	qty := 1
	if len(args) == 2 {
		qty, err = strconv.Atoi(args[1])
		if err != nil || qty < 1 {
			return 0, 0, false
		}
	}
	return id, qty, true
}
