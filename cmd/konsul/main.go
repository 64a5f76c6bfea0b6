package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bangunrumah/konsultasi-engine/internal/api"
	"github.com/bangunrumah/konsultasi-engine/internal/chat"
	"github.com/bangunrumah/konsultasi-engine/internal/config"
	"github.com/bangunrumah/konsultasi-engine/internal/consultation"
	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// konsul adalah klien terminal untuk satu konsultasi: menampilkan status,
// countdown pembayaran, keputusan admin, dan chat saat sesi aktif.
//
//	konsul <consultation-id>
//
// Env: API_BASE_URL, WS_BASE_URL, USER_ID, USER_TOKEN (lihat internal/config).
func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("pemakaian: konsul <consultation-id>")
	}
	consultationID := os.Args[1]

	cfg := config.Load()
	userID := os.Getenv("USER_ID")
	token := os.Getenv("USER_TOKEN")
	if userID == "" || token == "" {
		log.Fatal("USER_ID dan USER_TOKEN wajib diisi")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.APIBaseURL, token, cfg.RequestTimeout)
	c, err := client.Consultation(ctx, consultationID)
	if err != nil {
		log.Fatal("gagal memuat konsultasi: ", err)
	}
	life := consultation.NewLifecycle(c)
	log.Printf("konsultasi %s: status=%s type=%s total=Rp%d", c.ID, c.Status, c.Type, c.Total)

	switch c.Status {
	case models.StatusWaitingPayment:
		awaitPayment(ctx, client, life, cfg)
	case models.StatusWaitingConfirmation:
		awaitApproval(ctx, life, cfg, token)
	case models.StatusCancelled:
		fmt.Println(consultation.RecoveryMessage(c))
		fmt.Println("aksi:", consultation.ComputeRecoveryAction(c))
		return
	case models.StatusEnded:
		fmt.Println("Konsultasi sudah selesai.")
		return
	}

	runChat(ctx, client, life, cfg, userID, token)
}

func awaitPayment(ctx context.Context, client *api.Client, life *consultation.Lifecycle, cfg config.Config) {
	c := life.Consultation()
	window := consultation.NewPaymentWindow(c.CreatedAt, cfg.PaymentWindow, consultation.SystemClock)
	window.Run(ctx,
		func(remaining int64) {
			fmt.Printf("\rSisa waktu pembayaran: %02d:%02d", remaining/60, remaining%60)
		},
		func() {
			fmt.Println()
			if err := life.Expire(); err != nil {
				log.Fatal(err)
			}
			if err := client.MarkExpired(ctx, c.ID); err != nil {
				log.Printf("gagal lapor expired: %v", err)
			}
			fmt.Println(consultation.RecoveryMessage(c))
			os.Exit(0)
		})
}

func awaitApproval(ctx context.Context, life *consultation.Lifecycle, cfg config.Config, token string) {
	c := life.Consultation()
	watcher := consultation.NewApprovalWatcher(cfg.WSBaseURL, cfg.ReconnectDelay)
	for ev := range watcher.Watch(ctx, c.ID, token) {
		switch ev.Kind {
		case consultation.ApprovalApproved:
			if err := life.Approve(); err != nil {
				log.Fatal(err)
			}
			fmt.Println("Booking disetujui, konsultasi terjadwal.")
			return
		case consultation.ApprovalRejected:
			if err := life.Reject(ev.Message); err != nil {
				log.Fatal(err)
			}
			fmt.Println(consultation.RecoveryMessage(c))
			fmt.Println("aksi:", consultation.ComputeRecoveryAction(c))
			os.Exit(0)
		case consultation.ApprovalConnectionLost:
			// bukan penolakan: tawarkan cek manual
			fmt.Println("Koneksi terputus, mencoba ulang... (cek status manual bila perlu)")
		}
	}
}

func runChat(ctx context.Context, client *api.Client, life *consultation.Lifecycle, cfg config.Config, userID, token string) {
	c := life.Consultation()
	for chat.DeriveChatStatus(c, time.Now()) == models.ChatWaiting {
		fmt.Println("Menunggu jadwal konsultasi...")
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
		}
	}
	if chat.DeriveChatStatus(c, time.Now()) == models.ChatEnded {
		fmt.Println("Sesi konsultasi sudah berakhir.")
		return
	}

	msgLog := chat.NewLog()
	history, err := client.RoomHistory(ctx, c.RoomID)
	if err != nil {
		log.Fatal("gagal memuat riwayat: ", err)
	}
	msgLog.AppendAll(history)
	printTimeline(msgLog)

	transport := chat.NewTransport(chat.TransportConfig{
		WSBaseURL:         cfg.WSBaseURL,
		LocalUserID:       userID,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectDelay:    cfg.ReconnectDelay,
	})
	if err := transport.Open(ctx, c.RoomID, token); err != nil {
		log.Fatal("gagal membuka chat: ", err)
	}
	defer transport.Close()

	go func() {
		for msg := range transport.Inbound() {
			msgLog.Append(msg)
			fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Format("15:04"), msg.SenderRole, msg.Content)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		if chat.DeriveChatStatus(c, time.Now()) != models.ChatActive {
			fmt.Println("Sesi sudah berakhir, pesan tidak terkirim.")
			return
		}

		// echo optimis dulu, lalu kirim
		local := models.Message{
			ID:         models.NewLocalID(),
			RoomID:     c.RoomID,
			Sender:     userID,
			SenderRole: models.RoleUser,
			Content:    text,
			Type:       models.MessageText,
			CreatedAt:  time.Now(),
			Pending:    true,
		}
		msgLog.Append(local)

		err := transport.Send(models.Envelope{
			Sender:     userID,
			SenderRole: models.RoleUser,
			Content:    text,
			Type:       models.MessageText,
			SentAt:     local.CreatedAt,
		})
		if err != nil {
			msgLog.Remove(local.ID)
			fmt.Println("Pesan gagal terkirim:", err)
		}
	}
}

func printTimeline(msgLog *chat.Log) {
	entries := chat.BuildTimeline(msgLog.Snapshot(), time.Now())
	// timeline dibangun newest-first; terminal menampilkan dari paling lama
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind == chat.EntryDate {
			fmt.Println("---", e.Label, "---")
			continue
		}
		fmt.Printf("[%s] %s: %s\n", e.Message.CreatedAt.Format("15:04"), e.Message.SenderRole, e.Message.Content)
	}
}
