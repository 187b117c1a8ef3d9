package services

import (
	"fmt"
	"log"

	"schoolfees_go/config"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"

	"github.com/line/line-bot-sdk-go/linebot"
)

// LineMessagingService ดูแลการเชื่อมต่อ LINE Messaging API
type LineMessagingService struct {
	Bot *linebot.Client
}

// NewLineMessagingService สร้าง instance ใหม่
func NewLineMessagingService() *LineMessagingService {
	if !config.AppConfig.LineEnabled() {
		log.Println("LINE Messaging API disabled: missing LINE_CHANNEL_SECRET, LINE_CHANNEL_ACCESS_TOKEN or LINE_ADMIN_GROUP_ID")
		return &LineMessagingService{Bot: nil}
	}

	bot, err := linebot.New(config.AppConfig.LineChannelSecret, config.AppConfig.LineChannelToken)
	if err != nil {
		log.Fatalf("Cannot create LINE bot client: %v", err)
	}

	return &LineMessagingService{Bot: bot}
}

// SendLineMessageToGroup ส่งข้อความไปยังกลุ่มตาม GroupID
func (s *LineMessagingService) SendLineMessageToGroup(groupID string, message string) error {
	if s.Bot == nil {
		return fmt.Errorf("LINE Bot client is not initialized")
	}

	_, err := s.Bot.PushMessage(groupID, linebot.NewTextMessage(message)).Do()
	if err != nil {
		return fmt.Errorf("LINE Messaging API failed: %v", err)
	}
	return nil
}

// BuildOverdueSummary สร้างข้อความสรุปรายชื่อค้างชำระสำหรับกลุ่มแอดมิน
func BuildOverdueSummary(month string, unpaid []models.Payment) string {
	msg := fmt.Sprintf("ค้างชำระค่าธรรมเนียม %s (%d คน)\n", billing.FormatMonth(month), len(unpaid))
	var total float64
	for _, p := range unpaid {
		msg += fmt.Sprintf("- %s (%s) %.2f\n", p.Student.Name, p.Student.Grade, p.TotalAmount)
		total += p.TotalAmount
	}
	msg += fmt.Sprintf("รวมค้างชำระ %.2f บาท", total)
	return msg
}

// SendOverdueSummary ส่งสรุปค้างชำระไปยังกลุ่มแอดมิน
func (s *LineMessagingService) SendOverdueSummary(month string, unpaid []models.Payment) error {
	if len(unpaid) == 0 {
		return nil
	}
	return s.SendLineMessageToGroup(config.AppConfig.LineAdminGroupID, BuildOverdueSummary(month, unpaid))
}
