package mailer

import (
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type kind struct {
	file    string
	subject string
	data    func() any
}

var kinds = map[string]kind{
	domain.MailTypeCreateUser: {
		file:    "new_account_email.html",
		subject: "排课系统 - 账户信息",
		data:    func() any { return &domain.CreateUserMailData{} },
	},
	domain.MailTypeRunFinished: {
		file:    "run_finished_email.html",
		subject: "排课系统 - 排课完成",
		data:    func() any { return &domain.RunFinishedMailData{} },
	},
}

// Renderer 把队列中的邮件消息渲染成可以发送的邮件，模板在创建时一次性解析
type Renderer struct {
	from      string
	templates map[string]*template.Template
}

func NewRenderer(templateDir string, from string) (*Renderer, error) {
	r := &Renderer{
		from:      from,
		templates: make(map[string]*template.Template, len(kinds)),
	}

	for mailType, k := range kinds {
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, k.file))
		if err != nil {
			return nil, fmt.Errorf("无法解析邮件模板 %s: %w", k.file, err)
		}
		r.templates[mailType] = tmpl
	}

	return r, nil
}

// envelope 与 domain.MailMessage 对应，Data 延迟到确定类型之后再解码
type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// Render 解码消息体并生成邮件，返回的错误都是消息本身的问题，重试也不会成功
func (r *Renderer) Render(body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	k, ok := kinds[env.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %q", env.Type)
	}

	data := k.data()
	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(r.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	msg.Subject(k.subject)
	if err := msg.SetBodyHTMLTemplate(r.templates[env.Type], data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}

	return msg, nil
}
