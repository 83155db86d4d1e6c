package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leafdoctor/internal/logger"
	"leafdoctor/internal/model"
	"leafdoctor/internal/service"
	"leafdoctor/internal/service/intake"
)

const (
	msgStart = `🌿 Hi! I diagnose tomato leaf diseases.

📸 Send me a photo of a single leaf and I will tell you what I see and how to treat it.

📋 Commands:
/help - how to take a good photo`

	msgHelp = `ℹ️ How to use the bot:

1️⃣ Send a photo of one leaf
2️⃣ The model looks for disease symptoms
3️⃣ You get the disease name, confidence and a treatment

💡 Tips:
• Good daylight, no flash
• Plain background
• The leaf fills most of the frame`

	msgSendPhoto       = "📸 Please send a photo of the leaf."
	msgUnknownCommand  = "❓ Unknown command. Use /help."
	msgProcessing      = "⏳ Analysing the leaf..."
	msgUnreadable      = "⚠️ I could not read that image. Please send a JPEG or PNG photo."
	msgProcessingError = "⚠️ Something went wrong while analysing the photo. Please try again later."

	downloadTimeout = 30 * time.Second
)

// Bot diagnoses leaf photos sent over Telegram.
type Bot struct {
	api           *tgbotapi.BotAPI
	predictions   *service.PredictionService
	client        *http.Client
	maxUploadSize int64
	logger        *logger.Logger
}

// NewBot authorizes against the Bot API.
func NewBot(token string, predictions *service.PredictionService, maxUploadSize int64, logger *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}

	logger.Info("Telegram bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		predictions:   predictions,
		client:        &http.Client{Timeout: downloadTimeout},
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}, nil
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, commandReply(msg.Command()))
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handlePhoto diagnoses the largest size of the photo.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("Error downloading telegram photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	payload := intake.FromBytes(model.SourceTelegram, imageData)
	defer payload.Release()

	result, err := b.predictions.Predict(ctx, payload)
	if err != nil {
		b.logger.Warning("Telegram prediction failed: %v", err)
		b.sendMessage(msg.Chat.ID, errorReply(err))
		return
	}

	b.sendMessage(msg.Chat.ID, formatResult(result))
}

// downloadFile fetches a file from Telegram, capped at maxUploadSize bytes.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	return readLimited(resp.Body, b.maxUploadSize)
}

// readLimited reads r fully, failing when it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("read file: larger than %d bytes", limit)
	}
	return data, nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Error sending telegram message: %v", err)
	}
}

func commandReply(command string) string {
	switch command {
	case "start":
		return msgStart
	case "help":
		return msgHelp
	default:
		return msgUnknownCommand
	}
}

func errorReply(err error) string {
	if errors.Is(err, intake.ErrUnreadableImage) {
		return msgUnreadable
	}
	return msgProcessingError
}

// formatResult renders a diagnosis as a chat message.
func formatResult(result model.PredictionResult) string {
	if result.DiseaseID == 0 {
		return fmt.Sprintf("🔍 I found something on the leaf (%s) but I don't know this class.", result.Confidence)
	}
	return fmt.Sprintf("🩺 %s (%s)\n\n💊 %s", result.DiseaseName, result.Confidence, result.Treatment)
}
