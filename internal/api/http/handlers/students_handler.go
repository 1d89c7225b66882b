package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/student-auth/internal/api/dto"
	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/domain"
	"github.com/spec-kit/student-auth/internal/service"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// StudentsHandler exposes student records to authenticated callers.
type StudentsHandler struct {
	students *service.StudentService
}

// NewStudentsHandler constructs handler.
func NewStudentsHandler(students *service.StudentService) *StudentsHandler {
	return &StudentsHandler{students: students}
}

// List handles GET /api/students.
func (h *StudentsHandler) List(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	students, err := h.students.List(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return listResponse(c, "Students retrieved successfully", students)
}

// Get handles GET /api/students/:id.
func (h *StudentsHandler) Get(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	student, err := h.students.GetByID(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return recordResponse(c, http.StatusOK, "Student found successfully", student)
}

// GetByRollNo handles GET /api/students/rollno/:rollNo.
func (h *StudentsHandler) GetByRollNo(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	rollNo, err := strconv.Atoi(c.Params("rollNo"))
	if err != nil {
		return apperrors.NewValidationError("roll number must be an integer", map[string]any{"rollNo": c.Params("rollNo")})
	}
	student, err := h.students.GetByRollNo(c.UserContext(), caller, rollNo)
	if err != nil {
		return err
	}
	return recordResponse(c, http.StatusOK, "Student found successfully", student)
}

// Create handles POST /api/students.
func (h *StudentsHandler) Create(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req dto.StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	student, err := h.students.Create(c.UserContext(), caller, req.ToInput())
	if err != nil {
		return err
	}
	return recordResponse(c, http.StatusCreated, "Student created successfully", student)
}

// Update handles PUT /api/students/:id.
func (h *StudentsHandler) Update(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	student, err := h.students.Update(c.UserContext(), caller, id, req.ToInput())
	if err != nil {
		return err
	}
	return recordResponse(c, http.StatusOK, "Student updated successfully", student)
}

// Patch handles PATCH /api/students/:id.
func (h *StudentsHandler) Patch(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.StudentPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}
	student, err := h.students.PartialUpdate(c.UserContext(), caller, id, req.ToPatch())
	if err != nil {
		return err
	}
	return recordResponse(c, http.StatusOK, "Student updated successfully", student)
}

// Delete handles DELETE /api/students/:id.
func (h *StudentsHandler) Delete(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.students.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Student deleted successfully",
		"deletedId": id,
	})
}

// Search handles GET /api/students/search?name=.
func (h *StudentsHandler) Search(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	students, err := h.students.SearchByName(c.UserContext(), caller, c.Query("name"))
	if err != nil {
		return err
	}
	return listResponse(c, "Search completed successfully", students)
}

// ByBranch handles GET /api/students/branch/:branch.
func (h *StudentsHandler) ByBranch(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	students, err := h.students.ListByBranch(c.UserContext(), caller, c.Params("branch"))
	if err != nil {
		return err
	}
	return listResponse(c, "Students retrieved successfully", students)
}

// ByCourse handles GET /api/students/course/:course.
func (h *StudentsHandler) ByCourse(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	students, err := h.students.ListByCourse(c.UserContext(), caller, c.Params("course"))
	if err != nil {
		return err
	}
	return listResponse(c, "Students retrieved successfully", students)
}

func callerFrom(c *fiber.Ctx) (domain.Identity, error) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func recordResponse(c *fiber.Ctx, status int, message string, student *domain.Student) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    dto.NewStudentResponse(student),
	})
}

func listResponse(c *fiber.Ctx, message string, students []domain.Student) error {
	data := dto.NewStudentResponses(students)
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
		"count":   len(data),
	})
}
