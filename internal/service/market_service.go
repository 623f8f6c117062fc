package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"automarket/internal/events"
	"automarket/internal/metrics"
	"automarket/internal/notify"
	"automarket/internal/service/market"
	"automarket/internal/sheet"
	"automarket/internal/storage"
)

// Выгрузка кэшируется под номером поколения. Изменение заказа увеличивает
// поколение, поэтому выгрузка, прочитанная до изменения и записанная после,
// попадает под старый ключ и больше не отдаётся.
const dataGenerationKey = "data:gen"

func dataCacheKey(gen int64) string {
	return "data:" + strconv.FormatInt(gen, 10)
}

type MarketStorage interface {
	CreateOrder(ctx context.Context, order *storage.Order, idempotencyKey string) (int64, bool, error)
	SetBitrixID(ctx context.Context, orderID, leadID int64) error
	GetOrder(ctx context.Context, id int64) (*storage.Order, error)
	ListOrders(ctx context.Context, f storage.OrderFilter) ([]storage.Order, error)
	CreateOffer(ctx context.Context, offer *storage.Offer) (string, error)
	OrderIDByOffer(ctx context.Context, offerID string) (int64, error)
	OffersBySupplier(ctx context.Context, supplier string) ([]storage.Order, error)
	MutateOrder(ctx context.Context, orderID int64, fn func(*storage.Order) error) (*storage.Order, error)
	AddSubscriber(ctx context.Context, chatID int64, username string) (bool, error)
	LogAction(ctx context.Context, logType, message, payload string) error
}

type Notifier interface {
	Broadcast(ctx context.Context, text string) (int, error)
	Reply(ctx context.Context, chatID int64, text string) error
}

type CRM interface {
	AddLead(ctx context.Context, order storage.Order) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Generation(ctx context.Context, name string) (int64, error)
	Bump(ctx context.Context, name string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Deps внешние зависимости сервиса. Всё, кроме Storage, необязательно.
type Deps struct {
	Storage   MarketStorage
	Notifier  Notifier
	CRM       CRM
	Cache     Cache
	Publisher Publisher
	Formatter notify.Formatter
	Metrics   *metrics.Metrics
}

type MarketService struct {
	log       *slog.Logger
	storage   MarketStorage
	notifier  Notifier
	crm       CRM
	cache     Cache
	publisher Publisher
	format    notify.Formatter
	metrics   *metrics.Metrics
}

func NewMarketService(log *slog.Logger, d Deps) *MarketService {
	s := &MarketService{
		log:       log,
		storage:   d.Storage,
		notifier:  d.Notifier,
		crm:       d.CRM,
		cache:     d.Cache,
		publisher: d.Publisher,
		format:    d.Formatter,
		metrics:   d.Metrics,
	}
	if s.publisher == nil {
		s.publisher = events.Discard{}
	}
	return s
}

// CreateOrder создаёт заказ, лид в CRM и рассылает уведомление.
// Повтор с тем же ключом возвращает номер уже созданного заказа без побочных эффектов.
func (s *MarketService) CreateOrder(ctx context.Context, in market.OrderInput, idempotencyKey string) (id int64, err error) {
	const op = "service.market.CreateOrder"
	defer s.observe("create_order", time.Now(), &err)

	if err := market.ValidateOrder(in); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	order := market.NewOrder(in)
	id, created, err := s.storage.CreateOrder(ctx, &order, idempotencyKey)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if !created {
		s.log.Info("повторный запрос создания заказа", slog.String("op", op), slog.Int64("order_id", id))
		return id, nil
	}
	order.ID = id

	lead := s.createLead(ctx, &order)

	s.afterMutation(ctx, events.New(events.OrderCreated, id), &order)
	s.broadcast(ctx, s.format.NewOrder(order, lead))

	return id, nil
}

func (s *MarketService) createLead(ctx context.Context, order *storage.Order) notify.LeadResult {
	const op = "service.market.createLead"

	if s.crm == nil {
		return notify.LeadResult{}
	}

	leadID, err := s.crm.AddLead(ctx, *order)
	s.metrics.CRMLead(err)
	res := notify.LeadResult{ID: leadID, Err: err}
	if err != nil {
		s.log.Error("ошибка создания лида", slog.String("op", op), slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
	}
	if leadID <= 0 {
		return res
	}

	if err := s.storage.SetBitrixID(ctx, order.ID, leadID); err != nil {
		s.log.Error("не удалось сохранить номер лида", slog.String("op", op), slog.Int64("order_id", order.ID), slog.String("error", err.Error()))
		return res
	}
	order.BitrixID = &leadID
	return res
}

// CreateOffer добавляет предложение поставщика. Полный отказ от позиций тоже принимается.
func (s *MarketService) CreateOffer(ctx context.Context, in market.OfferInput) (id string, err error) {
	const op = "service.market.CreateOffer"
	defer s.observe("create_offer", time.Now(), &err)

	if err := market.ValidateOffer(in); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	offer := market.NewOffer(in)
	id, err = s.storage.CreateOffer(ctx, &offer)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	order, err := s.storage.GetOrder(ctx, offer.OrderID)
	if err != nil {
		s.log.Error("не удалось прочитать заказ для уведомления", slog.String("op", op), slog.String("error", err.Error()))
		return id, nil
	}

	ev := events.New(events.OfferCreated, order.ID)
	ev.OfferID = id
	s.afterMutation(ctx, ev, order)
	s.broadcast(ctx, s.format.NewOffer(*order, offer))

	return id, nil
}

// UpdateRank выбор или сброс лидера по позиции заказа.
func (s *MarketService) UpdateRank(ctx context.Context, cmd market.RankCommand) (err error) {
	const op = "service.market.UpdateRank"
	defer s.observe("update_rank", time.Now(), &err)

	if err := market.ValidateRank(cmd); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	orderID, err := s.storage.OrderIDByOffer(ctx, cmd.LeadOfferID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		return market.ApplyRank(o, cmd)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ev := events.New(events.RankUpdated, orderID)
	ev.OfferID = cmd.LeadOfferID
	s.afterMutation(ctx, ev, order)
	return nil
}

// FormQuote фиксирует КП по текущим лидерам.
func (s *MarketService) FormQuote(ctx context.Context, orderID int64) (err error) {
	const op = "service.market.FormQuote"
	defer s.observe("form_cp", time.Now(), &err)

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		o.State = storage.StateQuoteSent
		o.Processed = true
		market.UpdateSupplierStatuses(o)
		market.RefreshReceipt(o)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterMutation(ctx, events.New(events.QuoteFormed, orderID), order)
	s.broadcast(ctx, s.format.QuoteFormed(*order))
	return nil
}

func (s *MarketService) ConfirmPurchase(ctx context.Context, orderID int64) (err error) {
	const op = "service.market.ConfirmPurchase"
	defer s.observe("confirm_purchase", time.Now(), &err)

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		o.State = storage.StateReadyToBuy
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterMutation(ctx, events.New(events.PurchaseConfirmed, orderID), order)
	s.broadcast(ctx, s.format.PurchaseConfirmed(*order))
	return nil
}

// RefuseSource кто закрывает заказ: админ аннулирует, клиент отказывается.
type RefuseSource string

const (
	SourceAdmin  RefuseSource = "ADMIN"
	SourceClient RefuseSource = "CLIENT"
)

// RefuseOrder закрывает заказ с причиной. Закрытый заказ повторно не закрывается: ErrOrderClosed.
func (s *MarketService) RefuseOrder(ctx context.Context, orderID int64, source RefuseSource, reason string) (err error) {
	const op = "service.market.RefuseOrder"
	defer s.observe("refuse_order", time.Now(), &err)

	state, evType := storage.StateRefused, events.OrderRefused
	if strings.EqualFold(string(source), string(SourceAdmin)) {
		state, evType = storage.StateAnnulled, events.OrderAnnulled
	}

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		o.State = state
		o.Closed = true
		if reason = strings.TrimSpace(reason); reason != "" {
			o.RefusalReason = reason
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterMutation(ctx, events.New(evType, orderID), order)
	if state == storage.StateAnnulled {
		s.broadcast(ctx, s.format.Annulment(*order))
	} else {
		s.broadcast(ctx, s.format.Refusal(*order))
	}
	return nil
}

// UpdateWorkflowStatus ручная смена состояния заказа. Принимаются подписи и админа, и клиента.
func (s *MarketService) UpdateWorkflowStatus(ctx context.Context, orderID int64, status string) (err error) {
	const op = "service.market.UpdateWorkflowStatus"
	defer s.observe("update_workflow_status", time.Now(), &err)

	state, ok := storage.ParseOrderState(status)
	if !ok {
		return fmt.Errorf("%s: %q: %w", op, status, storage.ErrInvalidState)
	}

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		o.State = state
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ev := events.New(events.StatusChanged, orderID)
	s.afterMutation(ctx, ev, order)
	return nil
}

// UpdateItems правка позиций заказа админом. expectedVersion 0 отключает проверку версии.
func (s *MarketService) UpdateItems(ctx context.Context, orderID int64, items []storage.OrderItem, expectedVersion int) (err error) {
	const op = "service.market.UpdateItems"
	defer s.observe("update_json", time.Now(), &err)

	if len(items) == 0 {
		return fmt.Errorf("%s: %w: пустой список позиций", op, market.ErrValidation)
	}

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		if err := ensureOpen(o); err != nil {
			return err
		}
		if expectedVersion > 0 && o.Version != expectedVersion {
			return fmt.Errorf("%w: ожидалась версия %d, текущая %d", storage.ErrVersionConflict, expectedVersion, o.Version)
		}
		return market.ApplyItemEdits(o, items)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterMutation(ctx, events.New(events.ItemsUpdated, orderID), order)
	return nil
}

// CloseOrder закрывает заказ вместе со всеми предложениями.
func (s *MarketService) CloseOrder(ctx context.Context, orderID int64) (err error) {
	const op = "service.market.CloseOrder"
	defer s.observe("close_order", time.Now(), &err)

	order, err := s.storage.MutateOrder(ctx, orderID, func(o *storage.Order) error {
		o.Closed = true
		for i := range o.Offers {
			o.Offers[i].Closed = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.afterMutation(ctx, events.New(events.OrderClosed, orderID), order)
	return nil
}

// Data плоская выгрузка всех заказов и предложений в формате getData.
func (s *MarketService) Data(ctx context.Context) ([]sheet.Row, error) {
	const op = "service.market.Data"

	useCache := s.cache != nil
	var key string
	if useCache {
		gen, err := s.cache.Generation(ctx, dataGenerationKey)
		if err != nil {
			s.log.Warn("кэш недоступен", slog.String("op", op), slog.String("error", err.Error()))
			useCache = false
		} else {
			key = dataCacheKey(gen)
			var rows []sheet.Row
			hit, err := s.cache.Get(ctx, key, &rows)
			if err != nil {
				s.log.Warn("кэш недоступен", slog.String("op", op), slog.String("error", err.Error()))
			}
			s.metrics.CacheLookup(hit)
			if hit {
				return rows, nil
			}
		}
	}

	orders, err := s.storage.ListOrders(ctx, storage.OrderFilter{Role: storage.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := sheet.FlattenOrders(orders)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if useCache {
		if err := s.cache.Set(ctx, key, rows); err != nil {
			s.log.Warn("не удалось сохранить выгрузку в кэш", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
	return rows, nil
}

// OrderQuery параметры списка заказов для интерфейса конкретной роли.
type OrderQuery struct {
	Role     storage.Role
	Phone    string
	Supplier string
	OnlyOpen bool
	Search   string
	Limit    int
	Offset   int
}

func (s *MarketService) ListOrders(ctx context.Context, q OrderQuery) ([]market.OrderView, error) {
	const op = "service.market.ListOrders"

	f := storage.OrderFilter{
		Role:     q.Role,
		Supplier: q.Supplier,
		OnlyOpen: q.OnlyOpen,
		Search:   q.Search,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	switch q.Role {
	case storage.RoleAdmin:
	case storage.RoleClient:
		if strings.TrimSpace(q.Phone) == "" {
			return nil, fmt.Errorf("%s: %w: не указан телефон клиента", op, market.ErrValidation)
		}
		f.ClientPhone = strings.TrimSpace(q.Phone)
	case storage.RoleSupplier:
	default:
		return nil, fmt.Errorf("%s: %w: неизвестная роль %q", op, market.ErrValidation, q.Role)
	}

	orders, err := s.storage.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	views := make([]market.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, market.ViewFor(o, q.Role, q.Supplier))
	}
	return views, nil
}

func (s *MarketService) GetOrder(ctx context.Context, id int64, role storage.Role, supplier string) (market.OrderView, error) {
	const op = "service.market.GetOrder"

	order, err := s.storage.GetOrder(ctx, id)
	if err != nil {
		return market.OrderView{}, fmt.Errorf("%s: %w", op, err)
	}
	if role == "" {
		role = storage.RoleAdmin
	}
	return market.ViewFor(*order, role, supplier), nil
}

// SupplierOffers заказы, по которым поставщик подал предложения, со статусом его предложения.
func (s *MarketService) SupplierOffers(ctx context.Context, supplier string) ([]market.OrderView, error) {
	const op = "service.market.SupplierOffers"

	if strings.TrimSpace(supplier) == "" {
		return nil, fmt.Errorf("%s: %w: не указан поставщик", op, market.ErrValidation)
	}

	orders, err := s.storage.OffersBySupplier(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	views := make([]market.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, market.ViewFor(o, storage.RoleSupplier, supplier))
	}
	return views, nil
}

// HandleTelegramUpdate подписка на уведомления по /start, остальные сообщения игнорируются.
func (s *MarketService) HandleTelegramUpdate(ctx context.Context, upd tgbotapi.Update) error {
	const op = "service.market.HandleTelegramUpdate"

	msg := upd.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) != "/start" {
		return nil
	}

	username := "User"
	if msg.From != nil && msg.From.UserName != "" {
		username = msg.From.UserName
	}

	added, err := s.storage.AddSubscriber(ctx, msg.Chat.ID, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !added || s.notifier == nil {
		return nil
	}
	if err := s.notifier.Reply(ctx, msg.Chat.ID, "✅ Вы подписаны на уведомления о заказах"); err != nil {
		s.log.Warn("не удалось ответить подписчику", slog.String("op", op), slog.String("error", err.Error()))
	}
	return nil
}

// LogAction запись в журнал действий. Ошибка журнала не должна ломать запрос.
func (s *MarketService) LogAction(ctx context.Context, logType, message string, payload any) {
	const op = "service.market.LogAction"

	var raw string
	switch p := payload.(type) {
	case nil:
	case string:
		raw = p
	case []byte:
		raw = string(p)
	default:
		data, err := json.Marshal(p)
		if err == nil {
			raw = string(data)
		}
	}

	if err := s.storage.LogAction(ctx, logType, message, raw); err != nil {
		s.log.Warn("не удалось записать журнал действий", slog.String("op", op), slog.String("error", err.Error()))
	}
}

// ensureOpen заказ закрыт или уже в конечном состоянии, менять его нельзя.
func ensureOpen(o *storage.Order) error {
	if o.Closed || o.State.Terminal() {
		return fmt.Errorf("%w: %s", storage.ErrOrderClosed, o.State)
	}
	return nil
}

func (s *MarketService) observe(action string, started time.Time, err *error) {
	s.metrics.ObserveAction(action, started, *err)
}

// afterMutation сдвигает поколение кэша выгрузки и публикует событие. Ошибки только логируются:
// изменение уже сохранено.
func (s *MarketService) afterMutation(ctx context.Context, ev events.Event, order *storage.Order) {
	const op = "service.market.afterMutation"

	if s.cache != nil {
		if err := s.cache.Bump(ctx, dataGenerationKey); err != nil {
			s.log.Warn("не удалось сбросить кэш", slog.String("op", op), slog.String("error", err.Error()))
		}
	}

	if order != nil {
		ev.State = string(order.State)
		ev.Version = order.Version
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("не удалось опубликовать событие", slog.String("op", op),
			slog.String("event", string(ev.Type)), slog.String("error", err.Error()))
	}

	s.LogAction(ctx, storage.LogInfo, string(ev.Type), ev)
}

func (s *MarketService) broadcast(ctx context.Context, text string) {
	const op = "service.market.broadcast"

	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Broadcast(ctx, text); err != nil {
		s.log.Warn("ошибка рассылки", slog.String("op", op), slog.String("error", err.Error()))
	}
}
