package email

import "html/template"

const (
	TemplateTaskAssigned    = "task_assigned"
	TemplateDueDateReminder = "due_date_reminder"
)

const baseStyle = `
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #667eea; color: white; padding: 24px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 24px; border-radius: 0 0 8px 8px; }
        .task-card { background: white; border-radius: 8px; padding: 16px; margin: 16px 0; }
        .btn { display: inline-block; background: #667eea; color: white; padding: 12px 20px; text-decoration: none; border-radius: 6px; margin-top: 16px; }
        .footer { margin-top: 24px; font-size: 12px; color: #6b7280; text-align: center; }
`

func loadTemplates() map[string]*template.Template {
	return map[string]*template.Template{
		TemplateTaskAssigned: template.Must(template.New(TemplateTaskAssigned).Parse(`
<!DOCTYPE html>
<html>
<head><style>` + baseStyle + `</style></head>
<body>
<div class="container">
    <div class="header"><h2>New Task Assigned</h2></div>
    <div class="content">
        <p>Hi {{.AssigneeName}},</p>
        <p><strong>{{.AssignerName}}</strong> assigned you a task.</p>
        <div class="task-card">
            <h3>{{.TaskTitle}}</h3>
            <p><strong>Project:</strong> {{.ProjectName}}</p>
            <p><strong>Priority:</strong> {{.Priority}}</p>
            {{if .DueDate}}<p><strong>Due Date:</strong> {{.DueDate}}</p>{{end}}
        </div>
        {{if .TaskURL}}<a href="{{.TaskURL}}" class="btn">View Task</a>{{end}}
    </div>
    <div class="footer">ORA Tasks</div>
</div>
</body>
</html>
`)),

		TemplateDueDateReminder: template.Must(template.New(TemplateDueDateReminder).Parse(`
<!DOCTYPE html>
<html>
<head><style>` + baseStyle + `</style></head>
<body>
<div class="container">
    <div class="header"><h2>Task Due Soon</h2></div>
    <div class="content">
        <p>Hi {{.UserName}},</p>
        <div class="task-card">
            <h3>{{.TaskTitle}}</h3>
            <p><strong>Project:</strong> {{.ProjectName}}</p>
            <p><strong>Due:</strong> {{.DueDate}}</p>
        </div>
        {{if .TaskURL}}<a href="{{.TaskURL}}" class="btn">View Task</a>{{end}}
    </div>
    <div class="footer">ORA Tasks</div>
</div>
</body>
</html>
`)),
	}
}
